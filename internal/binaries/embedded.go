//go:build ffmpeg_embedded

package binaries

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
)

// release archives placed under assets/ before building with -tags ffmpeg_embedded
//
//go:embed assets/*
var bundled embed.FS

func openEmbeddedAsset(name string) (io.ReadCloser, bool, error) {
	f, err := bundled.Open(path.Join("assets", name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("embedded %s: %w", name, err)
	}
	return f, true, nil
}
