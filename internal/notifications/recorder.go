package notifications

import (
	"context"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/history"
)

// Recorder announces finished attempts. Rejected and cancelled attempts are
// never published; the remaining outcomes follow the enrollment and errors
// toggles.
type Recorder struct {
	service    Service
	enrollment bool
	errors     bool
}

// NewRecorder wraps service using the toggles from cfg.Notifications.
func NewRecorder(service Service, cfg config.Notifications) *Recorder {
	if service == nil {
		service = noopService{}
	}
	return &Recorder{service: service, enrollment: cfg.Enrollment, errors: cfg.Errors}
}

// Record implements history.Recorder.
func (r *Recorder) Record(ctx context.Context, entry history.Entry) error {
	switch entry.Outcome {
	case history.OutcomeRegistered:
		if !r.enrollment {
			return nil
		}
		return r.service.Publish(ctx, EventEnrolled, Payload{"identifier": entry.Identifier, "attempt_id": entry.AttemptID})
	case history.OutcomeDuplicate:
		if !r.enrollment {
			return nil
		}
		return r.service.Publish(ctx, EventDuplicate, Payload{"attempt_id": entry.AttemptID})
	case history.OutcomeFailed:
		if !r.errors {
			return nil
		}
		return r.service.Publish(ctx, EventEnrollFailed, Payload{"message": entry.Message, "attempt_id": entry.AttemptID})
	default:
		return nil
	}
}
