package validation

import (
	"fmt"
	"image"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

// Policy is the quality bar a detected face must clear.
type Policy struct {
	// MaxAngle bounds yaw, pitch and roll in degrees, exclusive.
	MaxAngle      float64
	Glare         imaging.GlareThresholds
	HotspotRatio  float64
	SpecularRatio float64
}

// DefaultPolicy returns the built-in thresholds.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.Default().Validation)
}

// PolicyFromConfig maps the [validation] config section to a Policy.
func PolicyFromConfig(v config.Validation) Policy {
	return Policy{
		MaxAngle: v.MaxAngleDegrees,
		Glare: imaging.GlareThresholds{
			Luma:       v.GlareLumaThreshold,
			Value:      v.SpecularValueThreshold,
			Saturation: v.SpecularSaturationThreshold,
		},
		HotspotRatio:  v.GlareHotspotRatio,
		SpecularRatio: v.SpecularRatio,
	}
}

// GlareReason returns a description of the glare found in img, or "" when
// the image is clean.
func (p Policy) GlareReason(img image.Image) string {
	stats := imaging.MeasureGlare(img, p.Glare)
	if stats.HotspotRatio > p.HotspotRatio {
		return fmt.Sprintf("glare detected (%.0f%% overexposed)", stats.HotspotRatio*100)
	}
	if stats.SpecularRatio > p.SpecularRatio {
		return fmt.Sprintf("specular highlights detected (%.0f%% of face)", stats.SpecularRatio*100)
	}
	return ""
}

// PoseReason returns a description of why pose is out of range, or "".
func (p Policy) PoseReason(pose inference.Pose) string {
	if pose.Within(p.MaxAngle) {
		return ""
	}
	return fmt.Sprintf("face not frontal (yaw %.0f, pitch %.0f, roll %.0f; limit %.0f)",
		pose.Yaw, pose.Pitch, pose.Roll, p.MaxAngle)
}
