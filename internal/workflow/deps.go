package workflow

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Dependency names understood by the standard registrations.
const (
	DepBoard         = "board"
	DepGate          = "gate"
	DepCamera        = "camera"
	DepDetector      = "detector"
	DepPoseEstimator = "pose_estimator"
	DepAligner       = "aligner"
	DepEmbedder      = "embedder"
	DepRegistry      = "registry"
	DepRecorder      = "recorder"
)

// Deps holds named collaborators handed to stage constructors.
type Deps map[string]any

// Has reports whether name is present and non-nil. A nil pointer wrapped in
// an interface counts as absent.
func (d Deps) Has(name string) bool {
	v, ok := d[name]
	return ok && !isNil(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Missing returns the names in required that d does not provide.
func (d Deps) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if !d.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Names returns the provided dependency names in sorted order.
func (d Deps) Names() []string {
	names := make([]string, 0, len(d))
	for name, v := range d {
		if !isNil(v) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Lookup returns the dependency called name as a T.
func Lookup[T any](d Deps, name string) (T, error) {
	var zero T
	v, ok := d[name]
	if !ok || isNil(v) {
		return zero, services.Wrap(services.ErrConfiguration, "workflow", "lookup", "missing dependency "+name, nil)
	}
	t, ok := v.(T)
	if !ok {
		return zero, services.Wrap(services.ErrConfiguration, "workflow", "lookup",
			fmt.Sprintf("dependency %s has type %T, want %T", name, v, zero), nil)
	}
	return t, nil
}
