package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Detrac iterates a UA-DETRAC style dataset.  Frame images live under
// <root>/images/<mode>/<sequence>/*.jpg and the per-sequence detections of
// the selected detector under <root>/detections/<detector>/<mode>/<sequence>.txt
// as CSV lines in the form frame,x,y,w,h,score.  Frame ids are 1-based over
// the sorted image files of the sequence.
type Detrac struct {
	root     string
	mode     string
	detector string
	seqDirs  []string
	cur      int
	frame    int
	seq      *detracSequence
}

type detracSequence struct {
	name string
	// imgs are the sorted frame image paths
	imgs []string
	dets map[int][]Detection
}

// NewDetrac opens a UA-DETRAC dataset rooted at root for the given split
// mode and detector (EB or frcnn).
func NewDetrac(root, mode, detector string) (*Detrac, error) {

	modeDir := filepath.Join(root, "images", mode)
	entries, err := os.ReadDir(modeDir)

	if err != nil {
		return nil, fmt.Errorf("error reading dataset directory: %w", err)
	}

	var seqDirs []string

	for _, e := range entries {
		if e.IsDir() {
			seqDirs = append(seqDirs, filepath.Join(modeDir, e.Name()))
		}
	}

	if len(seqDirs) == 0 {
		return nil, fmt.Errorf("no sequences found in %s", modeDir)
	}

	sort.Strings(seqDirs)

	return &Detrac{
		root:     root,
		mode:     mode,
		detector: detector,
		seqDirs:  seqDirs,
	}, nil
}

// Next returns the next sample or io.EOF once all sequences are exhausted
func (d *Detrac) Next() (*Sample, error) {

	for {
		if d.seq == nil {

			if d.cur >= len(d.seqDirs) {
				return nil, io.EOF
			}

			seq, err := d.openSequence(d.seqDirs[d.cur])

			if err != nil {
				return nil, err
			}

			d.seq = seq
			d.frame = 1
		}

		if d.frame > len(d.seq.imgs) {
			d.seq = nil
			d.cur++
			continue
		}

		frame, err := loadFrame(d.seq.imgs[d.frame-1])

		if err != nil {
			return nil, err
		}

		s := &Sample{
			Seq:        d.seq.name,
			FrameID:    d.frame,
			Detections: d.seq.dets[d.frame],
			Frame:      frame,
		}

		d.frame++
		return s, nil
	}
}

// Close releases the dataset
func (d *Detrac) Close() error {
	d.seq = nil
	return nil
}

func (d *Detrac) openSequence(dir string) (*detracSequence, error) {

	name := filepath.Base(dir)
	imgs, err := filepath.Glob(filepath.Join(dir, "*.jpg"))

	if err != nil {
		return nil, err
	}

	if len(imgs) == 0 {
		return nil, fmt.Errorf("sequence %s has no frame images", name)
	}

	sort.Strings(imgs)

	detFile := filepath.Join(d.root, "detections", d.detector, d.mode,
		name+".txt")

	dets, err := readDetracDetections(detFile)

	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", name, err)
	}

	return &detracSequence{
		name: name,
		imgs: imgs,
		dets: dets,
	}, nil
}

// readDetracDetections parses a per-sequence detector output file with CSV
// lines in the form frame,x,y,w,h,score
func readDetracDetections(path string) (map[int][]Detection, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	dets := make(map[int][]Detection)
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")

		if len(fields) < 6 {
			return nil, fmt.Errorf("invalid detection line %q", line)
		}

		vals := make([]float64, 6)

		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 32)

			if err != nil {
				return nil, fmt.Errorf("parsing %q: %w", fields[i], err)
			}

			vals[i] = v
		}

		frame := int(vals[0])

		dets[frame] = append(dets[frame], Detection{
			X:     float32(vals[1]),
			Y:     float32(vals[2]),
			W:     float32(vals[3]),
			H:     float32(vals[4]),
			Score: float32(vals[5]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return dets, nil
}
