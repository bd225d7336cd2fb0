package workflow

import (
	"github.com/access-system/face-recognition-enrollment/internal/stage"
)

// Registration describes one pipeline stage.
type Registration struct {
	Name string
	// Requires lists the Deps keys Build reads.
	Requires []string
	// Rate is the runner frequency in cycles per second.
	Rate  int
	Build func(Deps) (stage.Stage, error)
}
