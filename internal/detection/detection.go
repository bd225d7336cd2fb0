// Package detection implements the face detection stage.
//
// Each cycle the stage runs the detector over the latest raw frame, keeps the
// most confident face at or above the configured threshold, and publishes the
// cropped region. An annotated copy of the frame goes to processed_frame for
// display; it never influences the region output.
package detection

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Name is the stage name used in logs and status output.
const Name = "detect"

var boxColor = color.RGBA{R: 0, G: 200, B: 0, A: 255}

// Stage detects faces in raw_frame.
type Stage struct {
	detector      inference.Detector
	minConfidence float64

	raw       blackboard.Entry[imaging.Frame]
	processed blackboard.Entry[imaging.Frame]
	region    blackboard.Entry[imaging.Region]
	errMsg    blackboard.Entry[string]
	logger    *slog.Logger
}

// New returns a detection stage. minConfidence is inclusive.
func New(detector inference.Detector, minConfidence float64, board *blackboard.Board) *Stage {
	entries := board.Entries()
	return &Stage{
		detector:      detector,
		minConfidence: minConfidence,
		raw:           entries.RawFrame,
		processed:     entries.ProcessedFrame,
		region:        entries.DetectedRegion,
		errMsg:        entries.LastErrorMsg,
		logger:        logging.NewNop(),
	}
}

func (s *Stage) Name() string { return Name }

func (s *Stage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Stage) Cycle(ctx context.Context) error {
	frame, ok := s.raw.Get()
	if !ok || frame.Empty() {
		s.region.Reset()
		return nil
	}

	detections, err := s.detector.Detect(ctx, frame.Image)
	if err != nil {
		s.region.Reset()
		s.processed.Set(frame)
		s.errMsg.Set("face detection failed")
		return services.Wrap(services.ErrCollaborator, Name, "detect", "detector failed", err)
	}

	var boxes []image.Rectangle
	region, found := s.locate(frame, detections)
	if found {
		s.region.Set(region)
		boxes = append(boxes, region.Box)
	} else {
		s.region.Reset()
	}
	s.annotate(frame, boxes)
	return nil
}

// locate crops the best detection out of frame.
func (s *Stage) locate(frame imaging.Frame, detections []inference.Detection) (imaging.Region, bool) {
	best, ok := inference.Best(detections, s.minConfidence)
	if !ok {
		return imaging.Region{}, false
	}
	bounds := frame.Image.Bounds()
	box, ok := best.Box.ToPixels(bounds.Dx(), bounds.Dy())
	if !ok {
		s.logger.Debug("discarding zero-area detection", logging.Float64("confidence", best.Confidence))
		return imaging.Region{}, false
	}
	crop, ok := imaging.Crop(frame.Image, box)
	if !ok {
		return imaging.Region{}, false
	}
	return imaging.Region{
		Image:         crop,
		Box:           box,
		Confidence:    best.Confidence,
		FrameSequence: frame.Sequence,
	}, true
}

func (s *Stage) annotate(frame imaging.Frame, boxes []image.Rectangle) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Debug("frame annotation failed", logging.Any("panic", rec))
			s.processed.Set(frame)
		}
	}()
	annotated := frame
	annotated.Image = imaging.Annotate(frame.Image, boxes, boxColor, 2)
	s.processed.Set(annotated)
}

// Close releases the detector when it holds resources.
func (s *Stage) Close() error {
	if c, ok := s.detector.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
