package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/cyclopcam/scenereel/pkg/videox"
)

func check(err error) {
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("transcode", "Re-encode every .mp4 in a directory to H.264/yuv420p, as converted_<name>.mp4")
	input := parser.String("i", "input", &argparse.Options{Help: "Directory of videos", Required: true})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := log.NewLog()
	check(err)
	defer logger.Close()

	converted, failed, err := videox.TranscodeDir(logger, *input)
	check(err)
	logger.Infof("Converted %v videos, %v failed", len(converted), failed)
	if failed != 0 {
		os.Exit(1)
	}
}
