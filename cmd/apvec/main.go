// apvec precomputes appearance feature vectors for every frame of a
// multi-object-tracking dataset and stores them as shard files plus a key
// to shard index for later lookup by a tracker.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/tracklab/go-apvec"
	"github.com/tracklab/go-apvec/dataset"
	"github.com/tracklab/go-apvec/feature"
	"github.com/tracklab/go-apvec/store"
)

func main() {

	parser := argparse.NewParser("apvec",
		"Precompute appearance feature vectors for a tracking dataset")

	dataRoot := parser.StringPositional(&argparse.Options{
		Help: "Path to dataset root folder"})
	samplesPerFile := parser.Int("", "samples_per_file", &argparse.Options{
		Help: "Number of samples to be saved in each storage file", Default: 1024})
	dsetType := parser.Selector("", "dset_type",
		[]string{"mot-challenge", "detrac"}, &argparse.Options{
			Help: "Dataset type", Default: "mot-challenge"})
	dsetMode := parser.String("", "dset_mode", &argparse.Options{
		Help: "Dataset mode", Default: "train"})
	featureExtractor := parser.Selector("", "feature_extractor",
		[]string{"resnet18", "reid"}, &argparse.Options{
			Help: "Feature extractor type", Default: "resnet18"})
	reidCkpt := parser.String("", "reid_ckpt", &argparse.Options{
		Help: "Path to pretrained ReID model in ONNX format. (Only if reid is the feature extractor)"})
	resnetModel := parser.String("", "resnet18_onnx", &argparse.Options{
		Help: "Path to the headless ResNet-18 backbone in ONNX format",
		Default: "resnet18.onnx"})
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

	if *dataRoot == "" {
		fmt.Print(parser.Usage(fmt.Errorf("data root folder is required")))
		os.Exit(1)
	}

	logger, err := logs.NewLog()

	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// configuration errors are fatal before any processing starts
	var ds dataset.Dataset

	switch *dsetType {

	case "mot-challenge":
		ds, err = dataset.NewMOTChallenge(*dataRoot, *dsetMode, *dsetVersion)

	case "detrac":
		ds, err = dataset.NewDetrac(*dataRoot, *dsetMode, *detector)

	default:
		err = fmt.Errorf("invalid dataset type %q", *dsetType)
	}

	if err != nil {
		logger.Errorf("Error opening dataset: %v", err)
		os.Exit(1)
	}

	defer ds.Close()

	var ex feature.Extractor

	switch *featureExtractor {

	case "resnet18":
		r, err := feature.NewResnet18(*resnetModel)

		if err != nil {
			logger.Errorf("Error loading feature extractor: %v", err)
			os.Exit(1)
		}

		defer r.Close()
		ex = r

	case "reid":
		if *reidCkpt == "" {
			logger.Errorf("--reid_ckpt is required when feature_extractor is reid")
			os.Exit(1)
		}

		r, err := feature.NewReid(*reidCkpt)

		if err != nil {
			logger.Errorf("Error loading feature extractor: %v", err)
			os.Exit(1)
		}

		defer r.Close()
		ex = r

		if r.OnCuda() {
			logger.Infof("ReID inference on CUDA backend")
		}
	}

	var outDir string

	if *dsetType == "detrac" {
		outDir = filepath.Join(*dataRoot, fmt.Sprintf(
			"appearance_vectors_%s_%s_%s",
			*featureExtractor, *detector, *dsetMode))
	} else {
		outDir = filepath.Join(*dataRoot, fmt.Sprintf(
			"appearance_vectors_%s_%s", *featureExtractor, *dsetMode))
	}

	w, err := store.NewWriter(outDir, *samplesPerFile)

	if err != nil {
		logger.Errorf("Error creating shard writer: %v", err)
		os.Exit(1)
	}

	logger.Infof("Writing appearance vectors to %v", outDir)

	// run errors are logged inside Run and partial output is still
	// flushed, the vocabulary tells which frames made it to disk
	apvec.Run(ds, ex, w, logger)
}
