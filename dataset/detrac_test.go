package dataset

import (
	"io"
	"path/filepath"
	"testing"
)

func TestReadDetracDetections(t *testing.T) {

	path := filepath.Join(t.TempDir(), "MVI_20011.txt")

	writeFile(t, path, `1,100,50,60,80,0.95
2,0,0,1,1,0.05
`)

	dets, err := readDetracDetections(path)

	if err != nil {
		t.Fatalf("readDetracDetections failed: %v", err)
	}

	if len(dets[1]) != 1 || len(dets[2]) != 1 {
		t.Fatalf("unexpected detection counts: %d/%d", len(dets[1]), len(dets[2]))
	}

	d := dets[1][0]

	if d.X != 100 || d.Y != 50 || d.W != 60 || d.H != 80 || d.Score != 0.95 {
		t.Errorf("frame 1 detection = %+v; want {100 50 60 80 0.95}", d)
	}
}

func TestDetracNext(t *testing.T) {

	root := t.TempDir()

	seq1 := filepath.Join(root, "images", "train", "MVI_1")
	writeImage(t, filepath.Join(seq1, "img00001.jpg"))
	writeImage(t, filepath.Join(seq1, "img00002.jpg"))
	writeFile(t, filepath.Join(root, "detections", "EB", "train", "MVI_1.txt"),
		"2,5,5,10,10,0.9\n")

	seq2 := filepath.Join(root, "images", "train", "MVI_2")
	writeImage(t, filepath.Join(seq2, "img00001.jpg"))
	writeFile(t, filepath.Join(root, "detections", "EB", "train", "MVI_2.txt"),
		"1,0,0,2,2,0.5\n")

	ds, err := NewDetrac(root, "train", "EB")

	if err != nil {
		t.Fatalf("NewDetrac failed: %v", err)
	}

	defer ds.Close()

	want := []struct {
		seq     string
		frameID int
		nDets   int
	}{
		{"MVI_1", 1, 0},
		{"MVI_1", 2, 1},
		{"MVI_2", 1, 1},
	}

	for i, w := range want {
		s, err := ds.Next()

		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}

		if s.Seq != w.seq || s.FrameID != w.frameID {
			t.Errorf("sample %d = %s frame %d; want %s frame %d",
				i, s.Seq, s.FrameID, w.seq, w.frameID)
		}

		if len(s.Detections) != w.nDets {
			t.Errorf("sample %d has %d detections; want %d",
				i, len(s.Detections), w.nDets)
		}

		s.Close()
	}

	if _, err := ds.Next(); err != io.EOF {
		t.Fatalf("Next after last frame = %v; want io.EOF", err)
	}
}

func TestDetracNextMissingDetections(t *testing.T) {

	root := t.TempDir()
	writeImage(t, filepath.Join(root, "images", "train", "MVI_1", "img00001.jpg"))

	ds, err := NewDetrac(root, "train", "EB")

	if err != nil {
		t.Fatalf("NewDetrac failed: %v", err)
	}

	defer ds.Close()

	if _, err := ds.Next(); err == nil {
		t.Fatal("expected error for missing detection file, got nil")
	}
}
