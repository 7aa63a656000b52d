package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	// BeReal stores photos as WebP.
	_ "golang.org/x/image/webp"
)

const (
	insetWidthDivisor  = 3.5
	insetMarginDivisor = 40
	insetRadiusDivisor = 50
	borderDivisor      = 200
	minBorderWidth     = 4

	// A canvas shadowBlur of 15 is a gaussian of sigma 7.5.
	shadowSigma   = 7.5
	shadowOffset  = 5
	shadowOpacity = 0.4

	jpegQuality = 95
)

// Layout is the picture-in-picture geometry for a primary image width.
type Layout struct {
	Inset  image.Rectangle
	Radius float64
	Border float64
}

// InsetLayout places a 3:4 inset in the top-left corner, sized and rounded
// relative to width.
func InsetLayout(width int) Layout {
	insetWidth := max(1, int(math.Floor(float64(width)/insetWidthDivisor)))
	insetHeight := max(1, int(math.Floor(float64(insetWidth)*4/3)))
	margin := width / insetMarginDivisor
	return Layout{
		Inset:  image.Rect(margin, margin, margin+insetWidth, margin+insetHeight),
		Radius: float64(width / insetRadiusDivisor),
		Border: math.Max(minBorderWidth, float64(width)/borderDivisor),
	}
}

// Composite decodes both photos, insets secondary over primary and returns
// the result as JPEG. The output has the primary's dimensions.
func Composite(primary, secondary []byte) ([]byte, error) {
	primaryImage, primaryErr := imaging.Decode(bytes.NewReader(primary), imaging.AutoOrientation(true))
	if primaryErr != nil {
		return nil, fmt.Errorf("decode primary image: %w", primaryErr)
	}
	secondaryImage, secondaryErr := imaging.Decode(bytes.NewReader(secondary), imaging.AutoOrientation(true))
	if secondaryErr != nil {
		return nil, fmt.Errorf("decode secondary image: %w", secondaryErr)
	}

	var buf bytes.Buffer
	if encodeErr := imaging.Encode(&buf, CompositeImage(primaryImage, secondaryImage), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); encodeErr != nil {
		return nil, fmt.Errorf("encode merged image: %w", encodeErr)
	}
	return buf.Bytes(), nil
}

// CompositeImage draws, in order: primary, a blurred drop shadow of the
// inset, secondary stretched into the rounded inset, and the inset border.
func CompositeImage(primary, secondary image.Image) *image.NRGBA {
	canvas := imaging.Clone(primary)
	layout := InsetLayout(canvas.Bounds().Dx())

	drawShadow(canvas, layout)

	inset := imaging.Resize(secondary, layout.Inset.Dx(), layout.Inset.Dy(), imaging.Lanczos)
	clip := &shapeMask{
		bounds: layout.Inset,
		coverage: func(px, py float64) float64 {
			return 0.5 - roundedRectDistance(px, py, layout.Inset, layout.Radius)
		},
	}
	draw.DrawMask(canvas, layout.Inset, inset, image.Point{}, clip, layout.Inset.Min, draw.Over)

	half := layout.Border / 2
	outline := layout.Inset.Inset(-int(math.Ceil(half)) - 1)
	stroke := &shapeMask{
		bounds: outline,
		coverage: func(px, py float64) float64 {
			return half + 0.5 - math.Abs(roundedRectDistance(px, py, layout.Inset, layout.Radius))
		},
	}
	draw.DrawMask(canvas, outline, image.NewUniform(color.Black), image.Point{}, stroke, outline.Min, draw.Over)
	return canvas
}

func drawShadow(canvas *image.NRGBA, layout Layout) {
	pad := int(math.Ceil(3 * shadowSigma))
	size := layout.Inset.Size()
	local := image.Rect(pad, pad, pad+size.X, pad+size.Y)
	layer := image.NewNRGBA(image.Rect(0, 0, size.X+2*pad, size.Y+2*pad))
	for y := 0; y < layer.Bounds().Dy(); y++ {
		for x := 0; x < layer.Bounds().Dx(); x++ {
			coverage := clamp01(0.5 - roundedRectDistance(float64(x)+0.5, float64(y)+0.5, local, layout.Radius))
			if coverage == 0 {
				continue
			}
			layer.SetNRGBA(x, y, color.NRGBA{A: uint8(math.Round(255 * shadowOpacity * coverage))})
		}
	}
	blurred := imaging.Blur(layer, shadowSigma)

	target := layout.Inset.Add(image.Pt(shadowOffset-pad, shadowOffset-pad))
	target.Max = target.Min.Add(blurred.Bounds().Size())
	draw.Draw(canvas, target, blurred, image.Point{}, draw.Over)
}

// roundedRectDistance is the signed distance from (px, py) to the edge of r
// with corners rounded by radius; negative inside.
func roundedRectDistance(px, py float64, r image.Rectangle, radius float64) float64 {
	halfW := float64(r.Dx()) / 2
	halfH := float64(r.Dy()) / 2
	radius = math.Max(0, math.Min(radius, math.Min(halfW, halfH)))
	qx := math.Abs(px-(float64(r.Min.X)+halfW)) - (halfW - radius)
	qy := math.Abs(py-(float64(r.Min.Y)+halfH)) - (halfH - radius)
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside - radius
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// shapeMask is an alpha mask whose coverage is sampled at pixel centers.
type shapeMask struct {
	bounds   image.Rectangle
	coverage func(px, py float64) float64
}

func (m *shapeMask) ColorModel() color.Model { return color.AlphaModel }

func (m *shapeMask) Bounds() image.Rectangle { return m.bounds }

func (m *shapeMask) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(m.bounds) {
		return color.Alpha{}
	}
	return color.Alpha{A: uint8(math.Round(255 * clamp01(m.coverage(float64(x)+0.5, float64(y)+0.5))))}
}
