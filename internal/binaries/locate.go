// Package binaries finds the external programs masubs drives: ffmpeg,
// ffprobe and the whisper command-line recognizer.
package binaries

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	EnvFFmpeg  = "MASUBS_FFMPEG_PATH"
	EnvFFprobe = "MASUBS_FFPROBE_PATH"
	EnvWhisper = "MASUBS_WHISPER_PATH"
)

// ErrNotFound is returned when a program is not available anywhere.
var ErrNotFound = errors.New("executable not found")

// overridable in tests
var executablePath = os.Executable

// Locate resolves a program by name. The environment override wins, then a
// copy shipped next to the masubs executable, then PATH.
func Locate(name, envVar string) (string, error) {
	if envVar != "" {
		if p := strings.TrimSpace(os.Getenv(envVar)); p != "" {
			if !fileExists(p) {
				return "", fmt.Errorf("%s points to %q: %w", envVar, p, ErrNotFound)
			}
			return p, nil
		}
	}

	if p, ok := bundled(name); ok {
		return p, nil
	}

	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%s: %w (set %s or add it to PATH)", name, ErrNotFound, envVar)
}

// Whisper locates the whisper command-line recognizer.
func Whisper() (string, error) {
	return Locate("whisper", EnvWhisper)
}

// BundleDir is the directory holding the running executable, or "" when it
// cannot be determined.
func BundleDir() string {
	exe, err := executablePath()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func bundled(name string) (string, bool) {
	dir := BundleDir()
	if dir == "" {
		return "", false
	}
	p := filepath.Join(dir, name+executableSuffix())
	if fileExists(p) {
		return p, true
	}
	return "", false
}

// PathWith returns a PATH value with dir in front, for child processes that
// look up helpers themselves.
func PathWith(dir string) string {
	current := os.Getenv("PATH")
	if dir == "" {
		return current
	}
	for _, entry := range filepath.SplitList(current) {
		if entry == dir {
			return current
		}
	}
	if current == "" {
		return dir
	}
	return dir + string(os.PathListSeparator) + current
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
