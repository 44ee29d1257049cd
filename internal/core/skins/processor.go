// Package skins implements the image transforms applied to player skin
// textures: face and helm extraction, resizing, and flat model renders.
//
// Skins are 64x32 (legacy) or 64x64 textures. HD skins whose dimensions are
// a multiple of those are accepted and keep their resolution until the
// final resize.
package skins

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"Headshot/internal/core/textures"
)

// renderUnit is the output size in pixels of one texture pixel at scale 1.
const renderUnit = 4

// Texture regions on a 64 pixel wide skin, front faces only.
var (
	headFront     = image.Rect(8, 8, 16, 16)
	headOverlay   = image.Rect(40, 8, 48, 16)
	torsoFront    = image.Rect(20, 20, 28, 32)
	torsoOverlay  = image.Rect(20, 36, 28, 48)
	rightArmFront = image.Rect(44, 20, 48, 32)
	rightArmOver  = image.Rect(44, 36, 48, 48)
	leftArmFront  = image.Rect(36, 52, 40, 64)
	leftArmOver   = image.Rect(52, 52, 56, 64)
	rightLegFront = image.Rect(4, 20, 8, 32)
	rightLegOver  = image.Rect(4, 36, 8, 48)
	leftLegFront  = image.Rect(20, 52, 24, 64)
	leftLegOver   = image.Rect(4, 52, 8, 64)
)

// Processor implements textures.Transformer using the imaging library.
type Processor struct{}

// NewProcessor creates a new Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// skin is a decoded skin texture.
type skin struct {
	img    *image.NRGBA
	factor int
	legacy bool
}

func decodeSkin(data []byte) (*skin, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w < 64 || w%64 != 0 || (h != w && h != w/2) {
		return nil, fmt.Errorf("%w: unsupported skin dimensions %dx%d", textures.ErrImageProcessing, w, h)
	}
	return &skin{img: img, factor: w / 64, legacy: h == w/2}, nil
}

func decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", textures.ErrImageProcessing)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", textures.ErrImageProcessing, err)
	}
	return imaging.Clone(img), nil
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: failed to encode PNG: %v", textures.ErrImageProcessing, err)
	}
	return buf.Bytes(), nil
}

// region crops r, given in 64 pixel skin coordinates.
func (s *skin) region(r image.Rectangle) *image.NRGBA {
	f := s.factor
	return imaging.Crop(s.img, image.Rect(r.Min.X*f, r.Min.Y*f, r.Max.X*f, r.Max.Y*f))
}

// ExtractFace returns the front of the head.
func (p *Processor) ExtractFace(data []byte) ([]byte, error) {
	s, err := decodeSkin(data)
	if err != nil {
		return nil, err
	}
	return encode(s.region(headFront))
}

// ExtractHelm composites the head overlay onto face. Overlays that are fully
// transparent or a single solid colour are ignored, since older skins filled
// the unused area instead of leaving it transparent.
func (p *Processor) ExtractHelm(face, data []byte) ([]byte, error) {
	s, err := decodeSkin(data)
	if err != nil {
		return nil, err
	}
	base, err := decode(face)
	if err != nil {
		return nil, err
	}

	overlay := s.region(headOverlay)
	if !visible(overlay) {
		return encode(base)
	}
	if overlay.Bounds().Size() != base.Bounds().Size() {
		overlay = imaging.Resize(overlay, base.Bounds().Dx(), base.Bounds().Dy(), imaging.NearestNeighbor)
	}
	return encode(imaging.Overlay(base, overlay, image.Pt(0, 0), 1.0))
}

// visible reports whether an overlay layer has any content worth drawing.
func visible(img *image.NRGBA) bool {
	pix := img.Pix
	if len(pix) < 4 {
		return false
	}
	first := pix[:4]
	transparent, uniform := true, true
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i+3] != 0 {
			transparent = false
		}
		if uniform && !bytes.Equal(pix[i:i+4], first) {
			uniform = false
		}
		if !transparent && !uniform {
			return true
		}
	}
	return false
}

// Resize scales a square image to size x size with nearest neighbour
// sampling so texture pixels stay sharp.
func (p *Processor) Resize(data []byte, size int) ([]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: invalid size %d", textures.ErrImageProcessing, size)
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return encode(imaging.Resize(img, size, size, imaging.NearestNeighbor))
}

// part is a texture region and its position on the render canvas.
type part struct {
	src  *image.NRGBA
	x, y int
}

// RenderModel draws a front view of the head, or of the whole body when body
// is set. Overlay layers are drawn when helm is set; legacy skins only have
// the head overlay and reuse the right limbs mirrored for the left ones.
func (p *Processor) RenderModel(data []byte, scale int, helm, body bool) ([]byte, error) {
	if scale < 1 {
		return nil, fmt.Errorf("%w: invalid scale %d", textures.ErrImageProcessing, scale)
	}
	s, err := decodeSkin(data)
	if err != nil {
		return nil, err
	}

	w, h, headX := 8, 8, 0
	if body {
		w, h, headX = 16, 32, 4
	}

	base := []part{{s.region(headFront), headX, 0}}
	var overlays []part
	if helm {
		if head := s.region(headOverlay); visible(head) {
			overlays = append(overlays, part{head, headX, 0})
		}
	}

	if body {
		rightArm := s.region(rightArmFront)
		rightLeg := s.region(rightLegFront)
		leftArm, leftLeg := imaging.FlipH(rightArm), imaging.FlipH(rightLeg)
		if !s.legacy {
			leftArm, leftLeg = s.region(leftArmFront), s.region(leftLegFront)
		}
		base = append(base,
			part{rightArm, 0, 8},
			part{s.region(torsoFront), 4, 8},
			part{leftArm, 12, 8},
			part{rightLeg, 4, 20},
			part{leftLeg, 8, 20},
		)
		if helm && !s.legacy {
			overlays = append(overlays,
				part{s.region(rightArmOver), 0, 8},
				part{s.region(torsoOverlay), 4, 8},
				part{s.region(leftArmOver), 12, 8},
				part{s.region(rightLegOver), 4, 20},
				part{s.region(leftLegOver), 8, 20},
			)
		}
	}

	f := s.factor
	canvas := imaging.New(w*f, h*f, color.NRGBA{})
	for _, pt := range base {
		canvas = imaging.Paste(canvas, pt.src, image.Pt(pt.x*f, pt.y*f))
	}
	for _, pt := range overlays {
		canvas = imaging.Overlay(canvas, pt.src, image.Pt(pt.x*f, pt.y*f), 1.0)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w*renderUnit*scale, h*renderUnit*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	return encode(out)
}
