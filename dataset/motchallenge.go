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

// MOTChallenge iterates a MOTChallenge style dataset.  The expected layout
// is <root>/<mode>/<sequence>/ with each sequence directory holding a
// seqinfo.ini file, the frame images under the configured image directory
// and the public detections in det/det.txt.
type MOTChallenge struct {
	root    string
	mode    string
	version string
	// seqDirs are the sequence directories in sorted order
	seqDirs []string
	cur     int
	frame   int
	seq     *motSequence
}

// motSequence holds the parsed state of one sequence
type motSequence struct {
	name      string
	dir       string
	imDir     string
	imExt     string
	seqLength int
	// dets maps frame id to the frame's detections
	dets map[int][]Detection
}

// NewMOTChallenge opens a MOTChallenge dataset rooted at root.  Mode is the
// dataset split subdirectory (train or test), version is the MOTChallenge
// release the directory holds (MOT15, MOT17 or MOT20) and is informational
// only, the directory layout is the same for all three.
func NewMOTChallenge(root, mode, version string) (*MOTChallenge, error) {

	modeDir := filepath.Join(root, mode)
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

	return &MOTChallenge{
		root:    root,
		mode:    mode,
		version: version,
		seqDirs: seqDirs,
	}, nil
}

// Next returns the next sample, advancing to the following sequence once the
// current one is exhausted.  Returns io.EOF after the last frame of the last
// sequence.
func (m *MOTChallenge) Next() (*Sample, error) {

	for {
		if m.seq == nil {

			if m.cur >= len(m.seqDirs) {
				return nil, io.EOF
			}

			seq, err := openMOTSequence(m.seqDirs[m.cur])

			if err != nil {
				return nil, err
			}

			m.seq = seq
			m.frame = 1
		}

		if m.frame > m.seq.seqLength {
			m.seq = nil
			m.cur++
			continue
		}

		imgPath := filepath.Join(m.seq.dir, m.seq.imDir,
			fmt.Sprintf("%06d%s", m.frame, m.seq.imExt))

		frame, err := loadFrame(imgPath)

		if err != nil {
			return nil, err
		}

		s := &Sample{
			Seq:        m.seq.name,
			FrameID:    m.frame,
			Detections: m.seq.dets[m.frame],
			Frame:      frame,
		}

		m.frame++
		return s, nil
	}
}

// Close releases the dataset.  No resources are held between Next calls so
// this is a no-op kept for the Dataset contract.
func (m *MOTChallenge) Close() error {
	m.seq = nil
	return nil
}

// openMOTSequence parses the seqinfo.ini and public detections of one
// sequence directory
func openMOTSequence(dir string) (*motSequence, error) {

	info, err := parseSeqInfo(filepath.Join(dir, "seqinfo.ini"))

	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", filepath.Base(dir), err)
	}

	dets, err := readMOTDetections(filepath.Join(dir, "det", "det.txt"))

	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", filepath.Base(dir), err)
	}

	info.dir = dir
	info.dets = dets

	if info.name == "" {
		info.name = filepath.Base(dir)
	}

	return info, nil
}

// parseSeqInfo reads the ini style seqinfo file shipped with every
// MOTChallenge sequence.  Only the keys needed for iteration are kept.
func parseSeqInfo(path string) (*motSequence, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	seq := &motSequence{
		imDir: "img1",
		imExt: ".jpg",
	}

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// skip blanks, comments and section headers
		if line == "" || strings.HasPrefix(line, ";") ||
			strings.HasPrefix(line, "[") {
			continue
		}

		k, v, found := strings.Cut(line, "=")

		if !found {
			continue
		}

		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)

		switch strings.ToLower(k) {

		case "name":
			seq.name = v

		case "imdir":
			seq.imDir = v

		case "imext":
			seq.imExt = v

		case "seqlength":
			n, err := strconv.Atoi(v)

			if err != nil {
				return nil, fmt.Errorf("invalid seqLength %q: %w", v, err)
			}

			seq.seqLength = n
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if seq.seqLength <= 0 {
		return nil, fmt.Errorf("seqinfo %s has no seqLength", path)
	}

	return seq, nil
}

// readMOTDetections parses a MOTChallenge det.txt file.  Lines are CSV in
// the form frame,id,x,y,w,h,conf with optional trailing columns that are
// ignored.
func readMOTDetections(path string) (map[int][]Detection, error) {

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

		if len(fields) < 7 {
			return nil, fmt.Errorf("invalid detection line %q", line)
		}

		vals := make([]float64, 7)

		for i := 0; i < 7; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 32)

			if err != nil {
				return nil, fmt.Errorf("parsing %q: %w", fields[i], err)
			}

			vals[i] = v
		}

		frame := int(vals[0])

		dets[frame] = append(dets[frame], Detection{
			X:     float32(vals[2]),
			Y:     float32(vals[3]),
			W:     float32(vals[4]),
			H:     float32(vals[5]),
			Score: float32(vals[6]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return dets, nil
}
