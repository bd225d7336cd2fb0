package imaging

import "image"

// GlareThresholds configures MeasureGlare. Values use the 0–255 scale.
type GlareThresholds struct {
	Luma       int
	Value      int
	Saturation int
}

// GlareStats holds the fraction of pixels classed as hotspot or specular.
type GlareStats struct {
	HotspotRatio  float64
	SpecularRatio float64
}

// MeasureGlare counts pixels brighter than the luma threshold (BT.601 gray)
// and pixels that are both bright (HSV value) and unsaturated (HSV
// saturation), each as a fraction of the total pixel count.
func MeasureGlare(img image.Image, th GlareThresholds) GlareStats {
	if img == nil {
		return GlareStats{}
	}
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return GlareStats{}
	}
	var hot, specular int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r, g, bl := int(r16>>8), int(g16>>8), int(b16>>8)

			luma := (299*r + 587*g + 114*bl + 500) / 1000
			if luma > th.Luma {
				hot++
			}

			v := max(r, g, bl)
			lo := min(r, g, bl)
			s := 0
			if v > 0 {
				s = (255*(v-lo) + v/2) / v
			}
			if v > th.Value && s < th.Saturation {
				specular++
			}
		}
	}
	return GlareStats{
		HotspotRatio:  float64(hot) / float64(total),
		SpecularRatio: float64(specular) / float64(total),
	}
}
