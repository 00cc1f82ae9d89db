// Package config loads the optional YAML defaults file. Command-line flags
// always win over values read here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Transcribe struct {
		Provider      string        `yaml:"provider"`
		Model         string        `yaml:"model"`
		Format        string        `yaml:"format"`
		Language      string        `yaml:"language"`
		MaxLineChars  int           `yaml:"max_line_chars"`
		ChunkDuration time.Duration `yaml:"chunk_duration"`
		Concurrency   int           `yaml:"concurrency"`
	} `yaml:"transcribe"`

	Burn struct {
		VideoCodec   string `yaml:"video_codec"`
		CRF          int    `yaml:"crf"`
		Preset       string `yaml:"preset"`
		AudioCodec   string `yaml:"audio_codec"`
		AudioBitrate string `yaml:"audio_bitrate"`
	} `yaml:"burn"`

	Translate struct {
		Provider    string `yaml:"provider"`
		Model       string `yaml:"model"`
		BatchSize   int    `yaml:"batch_size"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"translate"`

	APIKeys map[string]string `yaml:"api_keys"`
}

// Default matches the behavior with no config file at all.
func Default() Config {
	var c Config
	c.Transcribe.Provider = "whisper"
	c.Transcribe.Model = "base"
	c.Transcribe.Format = "srt"
	c.Transcribe.ChunkDuration = 10 * time.Minute
	c.Transcribe.Concurrency = 3

	c.Burn.VideoCodec = "libx264"
	c.Burn.CRF = 23
	c.Burn.Preset = "veryfast"
	c.Burn.AudioCodec = "aac"
	c.Burn.AudioBitrate = "192k"

	c.Translate.Provider = "gemini"
	c.Translate.BatchSize = 50
	c.Translate.Concurrency = 3
	return c
}

// DefaultPath is $XDG_CONFIG_HOME/masubs/config.yaml, falling back to the
// platform config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "masubs", "config.yaml")
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// Resolve loads an explicitly requested file, or the default location when
// path is empty. Only the default location may be absent.
func Resolve(path string) (Config, string, error) {
	if path != "" {
		c, err := Load(path)
		return c, path, err
	}

	path = DefaultPath()
	if path == "" {
		return Default(), "", nil
	}
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), "", nil
	}
	return c, path, err
}

// APIKey returns the configured key for provider, if any.
func (c Config) APIKey(provider string) string {
	return c.APIKeys[provider]
}
