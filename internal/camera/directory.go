package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
)

// DirectorySource replays still images from a directory in name order.
type DirectorySource struct {
	mu     sync.Mutex
	files  []string
	next   int
	seq    uint64
	closed bool
}

// OpenDirectory lists the JPEG and PNG files in dir.
func OpenDirectory(dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("camera: read directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("camera: no images in %s", dir)
	}
	slices.Sort(files)
	return &DirectorySource{files: files}, nil
}

// Len reports how many images the source cycles through.
func (d *DirectorySource) Len() int {
	return len(d.files)
}

// Read decodes the next image, wrapping around after the last one.
func (d *DirectorySource) Read(ctx context.Context) (imaging.Frame, error) {
	if err := ctx.Err(); err != nil {
		return imaging.Frame{}, err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return imaging.Frame{}, ErrClosed
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return imaging.Frame{}, fmt.Errorf("camera: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return imaging.Frame{}, fmt.Errorf("camera: decode %s: %w", filepath.Base(path), err)
	}
	return imaging.Frame{Image: img, Sequence: seq, Captured: time.Now()}, nil
}

// Close makes later reads return ErrClosed.
func (d *DirectorySource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
