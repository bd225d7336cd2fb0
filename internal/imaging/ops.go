package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"golang.org/x/image/draw"
)

// Clone copies img into a new RGBA image with bounds starting at the origin.
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Crop copies the part of img inside r, after clamping r to img's bounds.
// The second result is false when nothing remains after clamping.
func Crop(img image.Image, r image.Rectangle) (*image.RGBA, bool) {
	if img == nil {
		return nil, false
	}
	bounds := img.Bounds()
	r = r.Add(bounds.Min).Intersect(bounds)
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, false
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, true
}

// Resize scales img to exactly w×h using bilinear interpolation.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// MirrorHorizontal flips img left to right.
func MirrorHorizontal(img image.Image) *image.RGBA {
	src := Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewRGBA(src.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, y, src.RGBAAt(x, y))
		}
	}
	return dst
}

// Annotate copies img and outlines each box with a thickness-pixel border.
func Annotate(img image.Image, boxes []image.Rectangle, c color.Color, thickness int) *image.RGBA {
	dst := Clone(img)
	if thickness <= 0 {
		thickness = 2
	}
	src := image.NewUniform(c)
	for _, box := range boxes {
		box = box.Intersect(dst.Bounds())
		if box.Empty() {
			continue
		}
		edges := []image.Rectangle{
			image.Rect(box.Min.X, box.Min.Y, box.Max.X, min(box.Min.Y+thickness, box.Max.Y)),
			image.Rect(box.Min.X, max(box.Max.Y-thickness, box.Min.Y), box.Max.X, box.Max.Y),
			image.Rect(box.Min.X, box.Min.Y, min(box.Min.X+thickness, box.Max.X), box.Max.Y),
			image.Rect(max(box.Max.X-thickness, box.Min.X), box.Min.Y, box.Max.X, box.Max.Y),
		}
		for _, edge := range edges {
			draw.Draw(dst, edge, src, image.Point{}, draw.Over)
		}
	}
	return dst
}

// EncodeJPEG writes img to w as a JPEG.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}
