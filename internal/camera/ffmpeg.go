package camera

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
)

// FFmpegOptions configures a V4L2 capture process.
type FFmpegOptions struct {
	Binary      string
	Device      string
	Width       int
	Height      int
	InputFormat string
	Logger      *slog.Logger
}

// Args returns the ffmpeg command line for opts, without the binary.
func (o FFmpegOptions) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if f := strings.TrimSpace(o.InputFormat); f != "" {
		args = append(args, "-input_format", f)
	}
	if o.Width > 0 && o.Height > 0 {
		args = append(args, "-video_size", strconv.Itoa(o.Width)+"x"+strconv.Itoa(o.Height))
	}
	return append(args, "-i", o.Device, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3", "-")
}

// FFmpegSource reads MJPEG frames from an ffmpeg child process.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	logger *slog.Logger
	frames chan imaging.Frame
	done   chan struct{}

	closeOnce sync.Once
	stopOnce  sync.Once
	mu        sync.Mutex
	err       error
}

// StartFFmpeg launches ffmpeg and begins decoding frames in the background.
func StartFFmpeg(ctx context.Context, opts FFmpegOptions) (*FFmpegSource, error) {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if strings.TrimSpace(opts.Device) == "" {
		return nil, fmt.Errorf("camera: device path is empty")
	}
	cmd := exec.Command(binary, opts.Args()...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("camera: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("camera: start %s: %w", binary, err)
	}
	src := newStreamSource(stdout, logging.NewComponentLogger(opts.Logger, "camera"))
	src.cmd = cmd
	src.stderr = stderr
	src.logger.Info("camera capture started",
		logging.EventType("camera_started"),
		logging.String("device", opts.Device),
		logging.Int("pid", cmd.Process.Pid),
	)
	return src, nil
}

// NewStreamSource decodes concatenated JPEG images from r. It is the
// process-free core of FFmpegSource.
func NewStreamSource(r io.Reader, logger *slog.Logger) *FFmpegSource {
	return newStreamSource(r, logging.NewComponentLogger(logger, "camera"))
}

func newStreamSource(r io.Reader, logger *slog.Logger) *FFmpegSource {
	s := &FFmpegSource{
		logger: logger,
		frames: make(chan imaging.Frame, 1),
		done:   make(chan struct{}),
	}
	go s.decodeLoop(r)
	return s
}

func (s *FFmpegSource) decodeLoop(r io.Reader) {
	defer s.finish(nil)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 32<<20)
	scanner.Split(SplitJPEG)

	var seq uint64
	for scanner.Scan() {
		img, err := jpeg.Decode(bytes.NewReader(scanner.Bytes()))
		if err != nil {
			s.logger.Debug("dropping undecodable frame", logging.Error(err))
			continue
		}
		seq++
		frame := imaging.Frame{Image: img, Sequence: seq, Captured: time.Now()}
		// Keep only the newest frame.
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.finish(fmt.Errorf("camera stream: %w", err))
	}
}

func (s *FFmpegSource) finish(err error) {
	s.mu.Lock()
	if s.err == nil && err != nil {
		s.err = err
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
}

// Read returns the newest frame not yet returned.
func (s *FFmpegSource) Read(ctx context.Context) (imaging.Frame, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	default:
	}
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		select {
		case frame := <-s.frames:
			return frame, nil
		default:
		}
		return imaging.Frame{}, s.closedErr()
	case <-ctx.Done():
		return imaging.Frame{}, ctx.Err()
	}
}

func (s *FFmpegSource) closedErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, s.err)
	}
	return ErrClosed
}

// Close stops ffmpeg. Pending and future reads return ErrClosed.
func (s *FFmpegSource) Close() error {
	s.finish(nil)
	s.stopOnce.Do(func() {
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		_ = s.cmd.Process.Kill()
		if err := s.cmd.Wait(); err != nil && s.stderr.Len() > 0 {
			s.logger.Debug("ffmpeg exited",
				logging.Error(err),
				logging.String("stderr", strings.TrimSpace(s.stderr.String())),
			)
		}
	})
	return nil
}
