package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/cyclopcam/scenereel/pkg/videox"
	"gopkg.in/yaml.v3"
)

const (
	ModeAnnotated = "annotated"
	ModeRaw       = "raw"
	ModeBoth      = "both"
)

type Config struct {
	Version     string   `json:"version" yaml:"version"`         // Dataset version, such as v1.0-trainval
	DataRoot    string   `json:"dataRoot" yaml:"dataRoot"`       // Directory containing <version>/ and samples/
	OutputRoot  string   `json:"outputRoot" yaml:"outputRoot"`   // image/, videos/ and the run index are written here
	Key         string   `json:"key" yaml:"key"`                 // Scene category (truck, overtake, trailer, construction)
	Scenes      []string `json:"scenes" yaml:"scenes"`           // Explicit scene names. Overrides Key.
	MatchFold   bool     `json:"matchFold" yaml:"matchFold"`     // Match Key case-insensitively
	Channel     string   `json:"channel" yaml:"channel"`         // Camera channel, eg CAM_FRONT
	Mode        string   `json:"mode" yaml:"mode"`               // annotated, raw, or both
	Visibility  string   `json:"visibility" yaml:"visibility"`   // any, all, or none
	FPS         float64  `json:"fps" yaml:"fps"`                 // Video frame rate
	Codec       string   `json:"codec" yaml:"codec"`             // Four character code, eg mp4v
	OutputWidth int      `json:"outputWidth" yaml:"outputWidth"` // Width of rendered frames in pixels
	Quality     int      `json:"quality" yaml:"quality"`         // JPEG quality of rendered frames
	MakeVideo   bool     `json:"makeVideo" yaml:"makeVideo"`     // Assemble a video per scene
	KeepFirst   bool     `json:"keepFirst" yaml:"keepFirst"`     // Include frame 000000 in videos
	Transcode   bool     `json:"transcode" yaml:"transcode"`     // Also write converted_<scene>.mp4 (H.264)
	Bucket      string   `json:"bucket" yaml:"bucket"`           // gs://bucket/prefix or a directory to publish artifacts to
	Resume      bool     `json:"resume" yaml:"resume"`           // Skip scenes that a previous run finished
	Workers     int      `json:"workers" yaml:"workers"`         // Number of scenes processed concurrently
}

func NewConfig() *Config {
	return &Config{
		Version:     "v1.0-trainval",
		DataRoot:    "/data/sets/nuscenes",
		Channel:     "CAM_FRONT",
		Mode:        ModeAnnotated,
		Visibility:  "any",
		FPS:         2,
		Codec:       "mp4v",
		OutputWidth: 1800,
		Quality:     95,
		MakeVideo:   true,
		Workers:     1,
	}
}

// LoadConfig reads a .json, .yaml or .yml file on top of the defaults
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := NewConfig()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Error loading as YAML %v: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
		}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("dataRoot must be specified")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("outputRoot must be specified")
	}
	switch c.Mode {
	case ModeAnnotated, ModeRaw, ModeBoth:
	default:
		return fmt.Errorf("Invalid mode '%v' (expected annotated, raw, or both)", c.Mode)
	}
	if _, err := geom.ParseVisibility(c.Visibility); err != nil {
		return err
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, not %v", c.FPS)
	}
	if _, err := videox.ParseFourCC(c.Codec); err != nil {
		return err
	}
	if c.OutputWidth < 0 {
		return fmt.Errorf("outputWidth may not be negative")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, not %v", c.Quality)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}
