package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/scenereel/pkg/config"
	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/cyclopcam/scenereel/pkg/nuscenes"
	"github.com/cyclopcam/scenereel/pkg/pipeline"
	"github.com/cyclopcam/scenereel/pkg/render"
	"github.com/cyclopcam/scenereel/pkg/rundb"
	"github.com/cyclopcam/scenereel/pkg/scenes"
	"github.com/cyclopcam/scenereel/pkg/storage"
	"github.com/cyclopcam/scenereel/pkg/videox"
)

func check(err error) {
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("scenereel", "Render annotated nuScenes camera frames, and assemble them into one video per scene")
	version := parser.String("v", "version", &argparse.Options{Help: "Dataset version (default v1.0-trainval)"})
	dataRoot := parser.String("r", "dataroot", &argparse.Options{Help: "Dataset root directory (default /data/sets/nuscenes)"})
	output := parser.String("o", "output", &argparse.Options{Help: "Output directory"})
	key := parser.String("k", "key", &argparse.Options{Help: "Scene category: " + categoryList()})
	sceneList := parser.String("s", "scenes", &argparse.Options{Help: "Comma-separated list of scene names. Overrides --key."})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file (.json, .yaml)"})
	mode := parser.String("", "mode", &argparse.Options{Help: "annotated, raw, or both (default annotated)"})
	channel := parser.String("", "channel", &argparse.Options{Help: "Camera channel (default CAM_FRONT)"})
	fps := parser.Float("", "fps", &argparse.Options{Help: "Video frame rate (default 2)"})
	codec := parser.String("", "codec", &argparse.Options{Help: "Video fourcc: mp4v, avc1, hevc, mjpg (default mp4v)"})
	visibility := parser.String("", "visibility", &argparse.Options{Help: "Which boxes to draw: any, all, none (default any)"})
	width := parser.Int("", "width", &argparse.Options{Help: "Width of rendered frames (default 1800)"})
	fold := parser.Flag("", "fold", &argparse.Options{Help: "Match --key case-insensitively"})
	noVideo := parser.Flag("", "novideo", &argparse.Options{Help: "Render frames only"})
	keepFirst := parser.Flag("", "keepfirst", &argparse.Options{Help: "Include frame 000000 in videos"})
	transcode := parser.Flag("", "transcode", &argparse.Options{Help: "Also write converted_<scene>.mp4 in H.264"})
	bucket := parser.String("", "bucket", &argparse.Options{Help: "Publish videos and sidecars to gs://bucket/prefix, or to a directory"})
	resume := parser.Flag("", "resume", &argparse.Options{Help: "Skip scenes that a previous run finished"})
	workers := parser.Int("", "workers", &argparse.Options{Help: "Number of scenes to process concurrently (default 1)"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	cfg := config.NewConfig()
	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile)
		check(err)
	}
	setString(&cfg.Version, *version)
	setString(&cfg.DataRoot, *dataRoot)
	setString(&cfg.OutputRoot, *output)
	setString(&cfg.Key, *key)
	setString(&cfg.Mode, *mode)
	setString(&cfg.Channel, *channel)
	setString(&cfg.Codec, *codec)
	setString(&cfg.Visibility, *visibility)
	setString(&cfg.Bucket, *bucket)
	if *sceneList != "" {
		cfg.Scenes = splitList(*sceneList)
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *width > 0 {
		cfg.OutputWidth = *width
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	cfg.MatchFold = cfg.MatchFold || *fold
	cfg.MakeVideo = cfg.MakeVideo && !*noVideo
	cfg.KeepFirst = cfg.KeepFirst || *keepFirst
	cfg.Transcode = cfg.Transcode || *transcode
	cfg.Resume = cfg.Resume || *resume
	check(cfg.Validate())

	criterion, err := makeCriterion(cfg)
	check(err)

	logger, err := log.NewLog()
	check(err)
	code := run(logger, cfg, criterion)
	logger.Close()
	os.Exit(code)
}

func run(logger log.Log, cfg *config.Config, criterion scenes.Criterion) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := nuscenes.Open(logger, cfg.DataRoot, cfg.Version)
	if err != nil {
		logger.Criticalf("%v", err)
		return 1
	}
	selected, err := scenes.Select(catalog.Scenes, criterion)
	if err != nil {
		logger.Criticalf("%v", err)
		return 1
	}
	logger.Infof("Selected %v of %v scenes by %v", len(selected), len(catalog.Scenes), criterion)

	options, err := pipelineOptions(cfg)
	if err != nil {
		logger.Criticalf("%v", err)
		return 1
	}
	ropt := render.DefaultOptions()
	ropt.OutputWidth = cfg.OutputWidth
	ropt.Quality = cfg.Quality
	p := pipeline.New(logger, catalog, render.NewRenderer(catalog, ropt), options)

	p.RunDB, err = rundb.Open(logger, cfg.OutputRoot)
	if err != nil {
		logger.Criticalf("%v", err)
		return 1
	}
	defer p.RunDB.Close()

	if cfg.Bucket != "" {
		store, err := storage.Open(logger, cfg.Bucket)
		if err != nil {
			logger.Criticalf("%v", err)
			return 1
		}
		p.Publisher = storage.NewPublisher(logger, store)
	}

	summary, err := p.Run(ctx, selected)
	if err != nil {
		logger.Errorf("Run interrupted: %v", err)
		return 1
	}
	for _, r := range summary.Scenes {
		if r.Err != nil {
			logger.Errorf("%v: %v", r.Scene, r.Err)
		}
	}
	if summary.AnyFailed() {
		return 1
	}
	return 0
}

func pipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	options := pipeline.DefaultOptions(filepath.Clean(cfg.OutputRoot))
	var err error
	if options.Mode, err = pipeline.ParseRenderMode(cfg.Mode); err != nil {
		return options, err
	}
	if options.Visibility, err = geom.ParseVisibility(cfg.Visibility); err != nil {
		return options, err
	}
	if options.Codec, err = videox.ParseFourCC(cfg.Codec); err != nil {
		return options, err
	}
	options.Channel = cfg.Channel
	options.MakeVideo = cfg.MakeVideo
	options.FPS = cfg.FPS
	if cfg.KeepFirst {
		options.Exclude = videox.ExcludeNothing
	}
	options.Transcode = cfg.Transcode
	options.Resume = cfg.Resume
	options.Workers = cfg.Workers
	return options, nil
}

func makeCriterion(cfg *config.Config) (scenes.Criterion, error) {
	c := scenes.Criterion{}
	if cfg.MatchFold {
		c.Match = scenes.MatchFold
	}
	switch {
	case len(cfg.Scenes) != 0 && cfg.Key != "":
		return c, fmt.Errorf("%w: scene names and keyword category '%v' are mutually exclusive", scenes.ErrInvalidCriterion, cfg.Key)
	case len(cfg.Scenes) != 0:
		c.Names = cfg.Scenes
	case cfg.Key != "":
		cat, err := scenes.ParseCategory(cfg.Key)
		if err != nil {
			return c, err
		}
		c.Category = cat
	default:
		c.All = true
	}
	return c, nil
}

func categoryList() string {
	s := []string{}
	for _, c := range scenes.Categories {
		s = append(s, string(c))
	}
	return strings.Join(s, ", ")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	r := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			r = append(r, p)
		}
	}
	return r
}
