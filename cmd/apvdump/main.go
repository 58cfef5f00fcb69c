// apvdump inspects a directory of precomputed appearance vectors: it
// verifies that every vocabulary key resolves to a loadable feature batch,
// prints per shard entry counts and can render a contact sheet of the
// patches cropped for a single frame.
package main

import (
	"fmt"
	"image/png"
	"io"
	"os"
	"sort"

	"github.com/akamensky/argparse"
	"gocv.io/x/gocv"

	"github.com/tracklab/go-apvec"
	"github.com/tracklab/go-apvec/dataset"
	"github.com/tracklab/go-apvec/render"
	"github.com/tracklab/go-apvec/store"
)

func main() {

	parser := argparse.NewParser("apvdump",
		"Inspect a precomputed appearance vector directory")

	outDir := parser.StringPositional(&argparse.Options{
		Help: "Path to appearance vector output folder"})
	key := parser.String("k", "key", &argparse.Options{
		Help: "Inspect a single frame key"})
	montage := parser.String("", "montage", &argparse.Options{
		Help: "Write a PNG contact sheet of the patches cropped for --key (needs the dataset flags)"})
	dataRoot := parser.String("", "data_root", &argparse.Options{
		Help: "Path to dataset root folder, for --montage"})
	dsetType := parser.Selector("", "dset_type",
		[]string{"mot-challenge", "detrac"}, &argparse.Options{
			Help: "Dataset type", Default: "mot-challenge"})
	dsetMode := parser.String("", "dset_mode", &argparse.Options{
		Help: "Dataset mode", Default: "train"})
	dsetVersion := parser.Selector("", "dset_version",
		[]string{"MOT17", "MOT15", "MOT20"}, &argparse.Options{
			Help: "Dataset version. Only for MOTChallenge datasets", Default: "MOT17"})
	detector := parser.Selector("", "detector", []string{"EB", "frcnn"},
		&argparse.Options{
			Help: "Selected detector. Only for UA-DETRAC", Default: "EB"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *outDir == "" {
		fmt.Print(parser.Usage(fmt.Errorf("output folder is required")))
		os.Exit(1)
	}

	r, err := store.NewReader(*outDir)

	if err != nil {
		fmt.Printf("Error opening output folder: %v\n", err)
		os.Exit(1)
	}

	if *key != "" {
		if err := inspectKey(r, *key); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}

		if *montage != "" {
			err := writeMontage(*montage, *key, *dataRoot, *dsetType,
				*dsetMode, *dsetVersion, *detector)

			if err != nil {
				fmt.Printf("Error writing montage: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("wrote %s\n", *montage)
		}

		return
	}

	if err := summarize(r); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}

// summarize prints per shard entry counts and verifies every key loads
func summarize(r *store.Reader) error {

	shards := r.Shards()
	names := make([]string, 0, len(shards))

	for name := range shards {
		names = append(names, name)
	}

	sort.Strings(names)

	fmt.Printf("%d keys across %d shards\n", len(r.Keys()), len(names))

	bad := 0

	for _, name := range names {
		fmt.Printf("  %s: %d entries\n", name, len(shards[name]))

		// verifying shard by shard loads each shard file only once
		for _, k := range shards[name] {
			if _, err := r.Lookup(k); err != nil {
				fmt.Printf("    BAD %s: %v\n", k, err)
				bad++
			}
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d keys failed verification", bad)
	}

	fmt.Println("all keys verified")
	return nil
}

// inspectKey prints the shape of one frame's feature batch
func inspectKey(r *store.Reader, key string) error {

	batch, err := r.Lookup(key)

	if err != nil {
		return err
	}

	dim := 0

	if len(batch) > 0 {
		dim = len(batch[0])
	}

	shard, _ := r.ShardFor(key)
	fmt.Printf("%s: %d vectors of dimension %d in %s\n",
		key, len(batch), dim, shard)

	return nil
}

// writeMontage re-crops the patches of one frame from the dataset and
// writes them as a PNG contact sheet
func writeMontage(path, key, dataRoot, dsetType, dsetMode, dsetVersion,
	detector string) error {

	if dataRoot == "" {
		return fmt.Errorf("--data_root is required for --montage")
	}

	var ds dataset.Dataset
	var err error

	switch dsetType {

	case "mot-challenge":
		ds, err = dataset.NewMOTChallenge(dataRoot, dsetMode, dsetVersion)

	case "detrac":
		ds, err = dataset.NewDetrac(dataRoot, dsetMode, detector)

	default:
		err = fmt.Errorf("invalid dataset type %q", dsetType)
	}

	if err != nil {
		return err
	}

	defer ds.Close()

	sample, err := findSample(ds, key)

	if err != nil {
		return err
	}

	defer sample.Close()

	patches := make([]gocv.Mat, 0, len(sample.Detections))

	defer func() {
		for _, p := range patches {
			p.Close()
		}
	}()

	for _, d := range sample.Detections {
		patches = append(patches, apvec.ExtractPatch(sample.Frame, d))
	}

	sheet, err := render.Montage(patches, 8, 128, 256)

	if err != nil {
		return err
	}

	f, err := os.Create(path)

	if err != nil {
		return err
	}

	if err := png.Encode(f, sheet); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// findSample walks the dataset until the sample with the given key is found
func findSample(ds dataset.Dataset, key string) (*dataset.Sample, error) {

	for {
		sample, err := ds.Next()

		if err == io.EOF {
			return nil, fmt.Errorf("key %q not found in dataset", key)
		}

		if err != nil {
			return nil, err
		}

		if apvec.Key(sample.Seq, sample.FrameID) == key {
			return sample, nil
		}

		sample.Close()
	}
}
