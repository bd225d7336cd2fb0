package camera_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/inference/inferencetest"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, inferencetest.Face(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestSplitJPEGExtractsFrames(t *testing.T) {
	first := jpegBytes(t, 8, 8)
	second := jpegBytes(t, 16, 16)
	stream := append([]byte("junk"), first...)
	stream = append(stream, second...)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(camera.SplitJPEG)
	var frames [][]byte
	for scanner.Scan() {
		frames = append(frames, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], first) || !bytes.Equal(frames[1], second) {
		t.Fatal("frames do not match input images")
	}
}

func TestSplitJPEGWaitsForEndMarker(t *testing.T) {
	data := []byte{0x00, 0xFF, 0xD8, 0x01, 0x02}
	advance, token, err := camera.SplitJPEG(data, false)
	if err != nil || token != nil {
		t.Fatalf("expected no token, got %v %v", token, err)
	}
	if advance != 1 {
		t.Fatalf("expected leading junk to be skipped, advance=%d", advance)
	}
}

func TestStreamSourceDeliversFramesThenCloses(t *testing.T) {
	pr, pw := io.Pipe()
	src := camera.NewStreamSource(pr, nil)
	t.Cleanup(func() { _ = src.Close() })

	go func() {
		_, _ = pw.Write(jpegBytes(t, 20, 10))
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frame.Sequence != 1 || frame.Image.Bounds().Dx() != 20 {
		t.Fatalf("unexpected frame seq=%d bounds=%v", frame.Sequence, frame.Image.Bounds())
	}

	_ = pw.Close()
	if _, err := src.Read(ctx); !errors.Is(err, camera.ErrClosed) {
		t.Fatalf("expected ErrClosed after stream end, got %v", err)
	}
}

func TestStreamSourceReadHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	src := camera.NewStreamSource(pr, nil)
	t.Cleanup(func() { _ = src.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := camera.FFmpegOptions{Device: "/dev/video2", Width: 640, Height: 480, InputFormat: "mjpeg"}.Args()
	for _, want := range []string{"/dev/video2", "640x480", "image2pipe", "mjpeg"} {
		if !slices.Contains(args, want) {
			t.Fatalf("expected %q in %v", want, args)
		}
	}
	if args[len(args)-1] != "-" {
		t.Fatalf("expected stdout output, got %v", args)
	}
}

func TestDirectorySourceLoops(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.jpg"), jpegBytes(t, 10, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.png"), pngBuf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := camera.OpenDirectory(dir)
	if err != nil {
		t.Fatalf("OpenDirectory: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("expected 2 images, got %d", src.Len())
	}
	ctx := context.Background()
	var widths []int
	for i := 0; i < 3; i++ {
		frame, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if frame.Sequence != uint64(i+1) {
			t.Fatalf("unexpected sequence %d", frame.Sequence)
		}
		widths = append(widths, frame.Image.Bounds().Dx())
	}
	if !slices.Equal(widths, []int{4, 10, 4}) {
		t.Fatalf("unexpected replay order %v", widths)
	}

	_ = src.Close()
	if _, err := src.Read(ctx); !errors.Is(err, camera.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpenDirectoryRejectsEmpty(t *testing.T) {
	if _, err := camera.OpenDirectory(t.TempDir()); err == nil {
		t.Fatal("expected empty directory to be rejected")
	}
}

func TestMonitorNilSafety(t *testing.T) {
	if m := camera.NewMonitor("  ", nil, nil); m != nil {
		t.Fatal("expected nil monitor for empty device")
	}
	var m *camera.Monitor
	m.Stop()
	if m.Running() {
		t.Fatal("nil monitor reports running")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor: %v", err)
	}
}

func TestMonitorHandlesRemoval(t *testing.T) {
	var removed []string
	m := camera.NewMonitor("/dev/video0", nil, func(dev string) { removed = append(removed, dev) })

	camera.HandleEventForTest(m, netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "/dev/video1"},
	})
	camera.HandleEventForTest(m, netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "video4linux", "DEVNAME": "video0"},
	})
	if !slices.Equal(removed, []string{"/dev/video0"}) {
		t.Fatalf("unexpected removals %v", removed)
	}
}

func TestMonitorMatcher(t *testing.T) {
	m := camera.NewMonitor("/dev/video0", nil, nil)
	matcher := camera.MatcherForTest(m)
	remove := netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "video4linux"}}
	if !matcher.Evaluate(remove) {
		t.Fatal("expected video4linux removal to match")
	}
	add := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "video4linux"}}
	if matcher.Evaluate(add) {
		t.Fatal("expected add to be ignored")
	}
	block := netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "block"}}
	if matcher.Evaluate(block) {
		t.Fatal("expected block device to be ignored")
	}
}
