package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
transcribe:
  model: medium
  chunk_duration: 5m
burn:
  crf: 18
api_keys:
  gemini: abc123
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Transcribe.Model != "medium" {
		t.Errorf("model = %q, want medium", c.Transcribe.Model)
	}
	if c.Transcribe.ChunkDuration != 5*time.Minute {
		t.Errorf("chunk duration = %v, want 5m", c.Transcribe.ChunkDuration)
	}
	if c.Transcribe.Provider != "whisper" {
		t.Errorf("provider = %q, want default whisper", c.Transcribe.Provider)
	}
	if c.Burn.CRF != 18 || c.Burn.Preset != "veryfast" {
		t.Errorf("burn = %+v", c.Burn)
	}
	if c.APIKey("gemini") != "abc123" || c.APIKey("openai") != "" {
		t.Errorf("api keys = %v", c.APIKeys)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "transcribe: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolve(t *testing.T) {
	t.Run("missing default file", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		c, path, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if path != "" || c.Transcribe.Model != "base" {
			t.Errorf("got %q, %+v", path, c.Transcribe)
		}
	})

	t.Run("default file present", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)
		if err := os.MkdirAll(filepath.Join(xdg, "masubs"), 0755); err != nil {
			t.Fatal(err)
		}
		want := writeConfig(t, filepath.Join(xdg, "masubs"), "translate:\n  provider: anthropic\n")

		c, path, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if path != want || c.Translate.Provider != "anthropic" {
			t.Errorf("got %q, %+v", path, c.Translate)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("error = %v, want not exist", err)
		}
	})
}
