package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/access-system/face-recognition-enrollment/internal/deps"
	"github.com/access-system/face-recognition-enrollment/internal/services/registry"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFrameDirectory verifies that a replay directory exists and is readable.
func CheckFrameDirectory(path string) Result {
	const name = "Frame directory"
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckCameraDevice verifies that the capture device node exists and the
// current user may read it.
func CheckCameraDevice(device string) Result {
	const name = "Camera device"
	device = strings.TrimSpace(device)
	if device == "" {
		return Result{Name: name, Detail: "no device configured"}
	}
	info, err := os.Stat(device)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not connected)", device)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", device, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a character device)", device)}
	}
	if err := unix.Access(device, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: permission denied, add the user to the video group)", device)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", device)}
}

// CheckDependencies reports one result per binary requirement. Missing
// optional binaries pass with a note.
func CheckDependencies(reqs []deps.Requirement) []Result {
	statuses := deps.CheckBinaries(reqs)
	results := make([]Result, 0, len(statuses))
	for _, st := range statuses {
		switch {
		case st.Available:
			results = append(results, Result{Name: st.Name, Passed: true, Detail: st.Path})
		case st.Optional:
			results = append(results, Result{Name: st.Name, Passed: true, Detail: "optional, " + st.Detail})
		default:
			detail := st.Detail
			if st.Description != "" {
				detail += " (" + strings.ToLower(st.Description[:1]) + st.Description[1:] + ")"
			}
			results = append(results, Result{Name: st.Name, Detail: detail})
		}
	}
	return results
}

// Pinger is satisfied by clients that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckRegistry verifies that the face registry accepts connections.
func CheckRegistry(ctx context.Context, baseURL string, client Pinger) Result {
	const name = "Face registry"
	if client == nil {
		c, err := registry.NewClient(baseURL, nil)
		if err != nil {
			return Result{Name: name, Detail: err.Error()}
		}
		client = c
	}
	if err := client.Ping(ctx); err != nil {
		return Result{Name: name, Detail: summarizeRegistryError(baseURL, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", baseURL)}
}

func summarizeRegistryError(baseURL string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s (error: timed out)", baseURL)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s (error: timed out)", baseURL)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Sprintf("%s (error: %v)", baseURL, opErr.Err)
	}
	return fmt.Sprintf("%s (error: %v)", baseURL, err)
}
