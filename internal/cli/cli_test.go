package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/task"
	"github.com/masubs/masubs/internal/transcribe"
	"github.com/masubs/masubs/internal/translate"
	"github.com/masubs/masubs/internal/video"
)

type fakeEncoder struct {
	res video.Result
	err error
}

func (f fakeEncoder) Burn(context.Context, string, string, string) (video.Result, error) {
	return f.res, f.err
}

func TestBurnOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		enc     fakeEncoder
		wantMsg string
		wantErr string
	}{
		{
			name:    "success",
			enc:     fakeEncoder{res: video.Result{Success: true, Message: "video saved to out.mp4"}},
			wantMsg: "video saved to out.mp4",
		},
		{
			name:    "encoder rejected input",
			enc:     fakeEncoder{res: video.Result{Message: "ffmpeg error: Unable to open subs.srt"}},
			wantErr: "ffmpeg error: Unable to open subs.srt",
		},
		{
			name:    "encoder could not run",
			enc:     fakeEncoder{err: errors.New("locate ffmpeg: executable not found")},
			wantErr: "locate ffmpeg: executable not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var progress bytes.Buffer
			msg, err := burn(context.Background(), tt.enc, "in.mp4", "subs.srt", "out.mp4", &progress)

			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
			if !strings.Contains(progress.String(), "[ .. ] burning subtitles") {
				t.Errorf("progress output = %q", progress.String())
			}
		})
	}
}

func TestRunTaskReportsProgress(t *testing.T) {
	var out bytes.Buffer
	runner := task.NewRunner[string]()

	got, err := runTask(context.Background(), runner,
		func(_ context.Context, report task.Reporter) (string, error) {
			report(10, "first")
			report(95, "last")
			return "done", nil
		},
		&out,
	)
	if err != nil || got != "done" {
		t.Fatalf("runTask = %q, %v", got, err)
	}
	if want := "[ 10%] first\n[ 95%] last\n"; out.String() != want {
		t.Errorf("progress = %q, want %q", out.String(), want)
	}
	if !runner.Ready() {
		t.Error("runner should be ready after the task finished")
	}
}

func TestRunTaskFailure(t *testing.T) {
	cause := errors.New("boom")
	_, err := runTask(context.Background(), task.NewRunner[int](),
		func(context.Context, task.Reporter) (int, error) { return 0, cause },
		&bytes.Buffer{},
	)
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want %v", err, cause)
	}
}

func TestTranslatedPath(t *testing.T) {
	tests := []struct {
		path, lang string
		overlay    bool
		want       string
	}{
		{"/subs/talk.srt", "Japanese", false, "/subs/talk.japanese.srt"},
		{"talk.vtt", "id", true, "talk.id.overlay.vtt"},
	}
	for _, tt := range tests {
		if got := translatedPath(tt.path, tt.lang, tt.overlay); got != tt.want {
			t.Errorf("translatedPath(%q, %q, %v) = %q, want %q", tt.path, tt.lang, tt.overlay, got, tt.want)
		}
	}
}

func TestResolveAPIKey(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "x"}
		c.Flags().String("api-key", "", "")
		return c
	}

	t.Setenv("GEMINI_API_KEY", "from-env")
	cfg.APIKeys = nil

	if got := resolveAPIKey(newCmd(), "gemini"); got != "from-env" {
		t.Errorf("env key = %q", got)
	}

	cfg.APIKeys = map[string]string{"gemini": "from-config"}
	t.Cleanup(func() { cfg.APIKeys = nil })
	if got := resolveAPIKey(newCmd(), "gemini"); got != "from-config" {
		t.Errorf("config key = %q", got)
	}

	c := newCmd()
	if err := c.Flags().Set("api-key", "from-flag"); err != nil {
		t.Fatal(err)
	}
	if got := resolveAPIKey(c, "gemini"); got != "from-flag" {
		t.Errorf("flag key = %q", got)
	}
}

func TestFlagFallbacks(t *testing.T) {
	c := &cobra.Command{Use: "x"}
	c.Flags().String("model", "base", "")
	c.Flags().Int("crf", 23, "")

	if got := stringFlag(c, "model", "large"); got != "large" {
		t.Errorf("unset flag should use config value, got %q", got)
	}
	if got := intFlag(c, "crf", 0); got != 23 {
		t.Errorf("empty config should use flag default, got %d", got)
	}

	_ = c.Flags().Set("model", "tiny")
	if got := stringFlag(c, "model", "large"); got != "tiny" {
		t.Errorf("explicit flag should win, got %q", got)
	}
}

func TestGenerateRejectsUnknownModel(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	media := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(media, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"generate", media, "--model", "gigantic"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	if !errors.Is(err, transcribe.ErrUnknownModel) {
		t.Fatalf("error = %v, want ErrUnknownModel", err)
	}
	if _, statErr := os.Stat(strings.TrimSuffix(media, ".wav") + ".srt"); !os.IsNotExist(statErr) {
		t.Error("no subtitle file should be written")
	}
	if !strings.Contains(stderr.String(), "[ 10%] preparing model") {
		t.Errorf("progress output = %q", stderr.String())
	}
}

func TestCheckTranslateOptions(t *testing.T) {
	ok := translate.Options{TargetLanguage: "id", BatchSize: 10, Concurrency: 2}
	if err := checkTranslateOptions(ok); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	bad := []translate.Options{
		{BatchSize: 10, Concurrency: 2},
		{InputLanguage: "ID", TargetLanguage: "id", BatchSize: 10, Concurrency: 2},
		{TargetLanguage: "id", BatchSize: 0, Concurrency: 2},
		{TargetLanguage: "id", BatchSize: 10, Concurrency: -1},
	}
	for _, opts := range bad {
		if err := checkTranslateOptions(opts); err == nil {
			t.Errorf("checkTranslateOptions(%+v) accepted", opts)
		}
	}
}
