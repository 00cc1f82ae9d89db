package binaries

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"
	downloadTimeout      = 5 * time.Minute
)

// release archive suffix keyed by GOOS/GOARCH
var releaseSuffixes = map[string]string{
	"linux/amd64":   "linux-64",
	"linux/arm64":   "linux-arm-64",
	"darwin/amd64":  "macos-64",
	"windows/amd64": "win-64",
}

type Paths struct {
	FFmpeg  string
	FFprobe string
}

func pathsIn(dir string) Paths {
	return Paths{
		FFmpeg:  filepath.Join(dir, "ffmpeg"+executableSuffix()),
		FFprobe: filepath.Join(dir, "ffprobe"+executableSuffix()),
	}
}

var resolved = sync.OnceValues(resolve)

// Ensure resolves ffmpeg and ffprobe once per process. When neither the
// environment, the bundle directory nor PATH provides them, a pinned release
// is unpacked into the user cache (from the embedded archive when built with
// the ffmpeg_embedded tag, otherwise downloaded).
func Ensure() (Paths, error) {
	return resolved()
}

func FFmpegPath() (string, error) {
	p, err := Ensure()
	return p.FFmpeg, err
}

func FFprobePath() (string, error) {
	p, err := Ensure()
	return p.FFprobe, err
}

func resolve() (Paths, error) {
	ffmpeg, ffmpegErr := Locate("ffmpeg", EnvFFmpeg)
	ffprobe, ffprobeErr := Locate("ffprobe", EnvFFprobe)
	if ffmpegErr == nil && ffprobeErr == nil {
		return Paths{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
	}
	// broken overrides are reported, never papered over with a download
	if os.Getenv(EnvFFmpeg) != "" || os.Getenv(EnvFFprobe) != "" {
		return Paths{}, errors.Join(ffmpegErr, ffprobeErr)
	}

	asset, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return Paths{}, err
	}
	dir := cacheDir()
	paths := pathsIn(dir)
	if binariesExist(paths) {
		return paths, nil
	}
	if err := install(asset, dir); err != nil {
		return Paths{}, err
	}
	if !binariesExist(paths) {
		return Paths{}, fmt.Errorf("%s unpacked but ffmpeg/ffprobe are still missing in %s", asset, dir)
	}
	if err := markExecutable(paths); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func cacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "masubs", "ffmpeg", ffmpegReleaseVersion, runtime.GOOS+"-"+runtime.GOARCH)
}

func assetForPlatform(goos, goarch string) (string, error) {
	suffix, ok := releaseSuffixes[goos+"/"+goarch]
	if !ok {
		return "", fmt.Errorf("no ffmpeg release for %s/%s", goos, goarch)
	}
	return fmt.Sprintf("ffmpeg-%s-%s.zip", ffmpegReleaseVersion, suffix), nil
}

// install prefers an archive compiled into the binary over the network.
func install(asset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ffmpeg cache: %w", err)
	}
	src, embedded, err := openEmbeddedAsset(asset)
	if err != nil {
		return err
	}
	if !embedded {
		if src, err = fetch(asset); err != nil {
			return err
		}
	}
	defer src.Close()

	archive, err := spool(src)
	if err != nil {
		return err
	}
	defer os.Remove(archive)

	if err := extractArchive(archive, dir); err != nil {
		return fmt.Errorf("unpack %s: %w", asset, err)
	}
	return nil
}

func fetch(asset string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, asset)
	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", asset, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", asset, resp.Status)
	}
	return resp.Body, nil
}

// spool copies r to a temp file since zip needs random access.
func spool(r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "masubs-ffmpeg-*.zip")
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("spool ffmpeg archive: %w", err)
	}
	return f.Name(), nil
}

// extractArchive writes the ffmpeg and ffprobe entries of a release zip into
// dir, ignoring everything else it contains.
func extractArchive(archivePath, dir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	targets := pathsIn(dir)
	pending := map[string]string{
		"ffmpeg":  targets.FFmpeg,
		"ffprobe": targets.FFprobe,
	}
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		tool := strings.TrimSuffix(strings.ToLower(filepath.Base(entry.Name)), ".exe")
		dest, ok := pending[tool]
		if !ok {
			continue
		}
		if err := copyEntry(entry, dest); err != nil {
			return fmt.Errorf("%s: %w", entry.Name, err)
		}
		delete(pending, tool)
	}
	if len(pending) > 0 {
		missing := lo.Keys(pending)
		slices.Sort(missing)
		return fmt.Errorf("archive has no %s", strings.Join(missing, " or "))
	}
	return nil
}

func copyEntry(entry *zip.File, dest string) error {
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func markExecutable(p Paths) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	for _, bin := range []string{p.FFmpeg, p.FFprobe} {
		if err := os.Chmod(bin, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func binariesExist(p Paths) bool {
	return fileExists(p.FFmpeg) && fileExists(p.FFprobe)
}
