package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Options configures a worker process.
type Options struct {
	Command string
	Args    []string
	Model   string
	Device  string
	Logger  *slog.Logger
}

type conn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	data   io.ReadCloser
	stderr *tailBuffer
}

func (c *conn) close() error {
	var errs []error
	if c.stdin != nil {
		errs = append(errs, c.stdin.Close())
	}
	if c.data != nil {
		errs = append(errs, c.data.Close())
	}
	if c.cmd != nil && c.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = c.cmd.Process.Kill()
			<-done
		}
	}
	return errors.Join(errs...)
}

// Process is a connection to one model worker. Calls are serialized.
type Process struct {
	model  string
	spawn  func() (*conn, error)
	logger *slog.Logger

	mu     sync.Mutex
	conn   *conn
	closed bool
}

// Start launches a worker process for opts.Model.
func Start(opts Options) (*Process, error) {
	command := strings.TrimSpace(opts.Command)
	if command == "" {
		return nil, services.Wrap(services.ErrConfiguration, "worker", "start", "worker command is empty", nil)
	}
	args := append([]string(nil), opts.Args...)
	args = append(args, "--model", opts.Model)
	if opts.Device != "" {
		args = append(args, "--device", opts.Device)
	}
	logger := logging.NewComponentLogger(opts.Logger, "worker").With(logging.String("model", opts.Model))

	p := &Process{
		model:  opts.Model,
		logger: logger,
		spawn: func() (*conn, error) {
			return spawn(command, args)
		},
	}
	c, err := p.spawn()
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "worker", "start", opts.Model, err)
	}
	p.conn = c
	logger.Info("model worker started", logging.EventType("worker_started"), logging.Int("pid", c.cmd.Process.Pid))
	return p, nil
}

// NewFromPipes wraps an already-connected request/response pair. The process
// is not restarted when the pipes fail.
func NewFromPipes(model string, stdin io.WriteCloser, data io.ReadCloser) *Process {
	return &Process{
		model:  model,
		logger: logging.NewNop(),
		conn:   &conn{stdin: stdin, data: data, stderr: newTailBuffer(0)},
	}
}

func spawn(command string, args []string) (*conn, error) {
	cmd := exec.Command(command, args...)
	stderr := newTailBuffer(8 << 10)
	cmd.Stderr = stderr

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create data pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	// Only the child holds the write end now.
	w.Close()
	return &conn{cmd: cmd, stdin: stdin, data: r, stderr: stderr}, nil
}

// Model returns the worker role.
func (p *Process) Model() string { return p.model }

// Call sends op with img and params and decodes the result into out.
func (p *Process) Call(ctx context.Context, op string, img []byte, params map[string]any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(request{Op: op, Image: img, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return services.Wrap(services.ErrCollaborator, "worker", op, "worker closed", nil)
	}
	if p.conn == nil {
		if p.spawn == nil {
			return services.Wrap(services.ErrCollaborator, "worker", op, "worker unavailable", nil)
		}
		c, err := p.spawn()
		if err != nil {
			return services.Wrap(services.ErrCollaborator, "worker", op, "restart failed", err)
		}
		p.conn = c
		p.logger.Info("model worker restarted", logging.EventType("worker_restarted"))
	}

	body, err := p.roundTrip(ctx, payload)
	if err != nil {
		detail := strings.TrimSpace(p.conn.stderr.String())
		_ = p.conn.close()
		p.conn = nil
		if detail != "" {
			err = fmt.Errorf("%w (worker stderr: %s)", err, detail)
		}
		return services.Wrap(services.ErrCollaborator, "worker", op, "pipe failure", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return services.Wrap(services.ErrCollaborator, "worker", op, "decode response", err)
	}
	if !resp.OK {
		return services.Wrap(services.ErrCollaborator, "worker", op, resp.Error, nil)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return services.Wrap(services.ErrCollaborator, "worker", op, "decode result", err)
	}
	return nil
}

type deadliner interface {
	SetReadDeadline(time.Time) error
}

func (p *Process) roundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	if d, ok := p.conn.data.(deadliner); ok {
		if deadline, ok := ctx.Deadline(); ok {
			_ = d.SetReadDeadline(deadline)
			defer d.SetReadDeadline(time.Time{})
		}
	}
	if err := writeFrame(p.conn.stdin, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	body, err := readFrame(p.conn.data)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// Close stops the worker. It is safe to call more than once.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.close()
	p.conn = nil
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit <= 0 {
		return len(p), nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
