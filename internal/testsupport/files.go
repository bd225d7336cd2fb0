package testsupport

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
)

// WriteJPEG encodes img to path, creating parent directories.
func WriteJPEG(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := imaging.EncodeJPEG(f, img, 90); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}
