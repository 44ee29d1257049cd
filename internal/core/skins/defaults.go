package skins

import (
	"encoding/binary"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Default skin models.
const (
	Steve = "steve"
	Alex  = "alex"
)

// DefaultSkin returns the model the game client shows for an identity
// without a skin: alex when the Java hashCode of the UUID is odd, steve
// otherwise. Usernames always get steve.
func DefaultSkin(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return Steve
	}
	msb := binary.BigEndian.Uint64(u[:8])
	lsb := binary.BigEndian.Uint64(u[8:])
	hilo := msb ^ lsb
	if (int32(hilo>>32)^int32(hilo))&1 == 1 {
		return Alex
	}
	return Steve
}

type palette struct {
	skin, hair, eyes color.NRGBA
	shirt, sleeve    color.NRGBA
	pants, shoes     color.NRGBA
	armWidth         int
}

var palettes = map[string]palette{
	Steve: {
		skin:     color.NRGBA{R: 0xb4, G: 0x84, B: 0x6d, A: 0xff},
		hair:     color.NRGBA{R: 0x2b, G: 0x1e, B: 0x0d, A: 0xff},
		eyes:     color.NRGBA{R: 0x49, G: 0x3b, B: 0x82, A: 0xff},
		shirt:    color.NRGBA{R: 0x00, G: 0xaf, B: 0xaf, A: 0xff},
		sleeve:   color.NRGBA{R: 0x00, G: 0x9b, B: 0x9b, A: 0xff},
		pants:    color.NRGBA{R: 0x46, G: 0x3a, B: 0xa5, A: 0xff},
		shoes:    color.NRGBA{R: 0x6a, G: 0x6a, B: 0x6a, A: 0xff},
		armWidth: 4,
	},
	Alex: {
		skin:     color.NRGBA{R: 0xf2, G: 0xc4, B: 0x9b, A: 0xff},
		hair:     color.NRGBA{R: 0xe0, G: 0x7a, B: 0x2b, A: 0xff},
		eyes:     color.NRGBA{R: 0x3c, G: 0x8b, B: 0x48, A: 0xff},
		shirt:    color.NRGBA{R: 0x6e, G: 0xa2, B: 0x5c, A: 0xff},
		sleeve:   color.NRGBA{R: 0x5a, G: 0x8c, B: 0x4a, A: 0xff},
		pants:    color.NRGBA{R: 0x7a, G: 0x5a, B: 0x3a, A: 0xff},
		shoes:    color.NRGBA{R: 0x54, G: 0x54, B: 0x54, A: 0xff},
		armWidth: 3,
	},
}

var (
	defaultMu    sync.Mutex
	defaultCache = map[string][]byte{}
)

// DefaultSkinPNG returns the 64x64 fallback skin texture of model. Unknown
// models get steve.
func DefaultSkinPNG(model string) []byte {
	if _, ok := palettes[model]; !ok {
		model = Steve
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if data, ok := defaultCache[model]; ok {
		return data
	}
	data, err := encode(drawDefaultSkin(palettes[model]))
	if err != nil {
		// Encoding an in-memory NRGBA image does not fail.
		panic(err)
	}
	defaultCache[model] = data
	return data
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func drawDefaultSkin(p palette) *image.NRGBA {
	img := imaging.New(64, 64, color.NRGBA{})

	// Head: all six faces in skin tone, hair on top and the upper rows.
	fill(img, image.Rect(0, 0, 32, 16), p.skin)
	fill(img, image.Rect(8, 0, 16, 8), p.hair)
	fill(img, image.Rect(0, 8, 32, 10), p.hair)
	fill(img, image.Rect(24, 8, 32, 16), p.hair)

	// Face.
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	img.SetNRGBA(9, 12, white)
	img.SetNRGBA(10, 12, p.eyes)
	img.SetNRGBA(13, 12, p.eyes)
	img.SetNRGBA(14, 12, white)
	fill(img, image.Rect(11, 14, 13, 15), p.hair)

	// Torso, arms and legs.
	fill(img, image.Rect(16, 16, 40, 32), p.shirt)
	fill(img, image.Rect(40, 16, 56, 32), p.skin)
	fill(img, image.Rect(40, 20, 56, 24), p.sleeve)
	fill(img, image.Rect(32, 48, 48, 64), p.skin)
	fill(img, image.Rect(32, 52, 48, 56), p.sleeve)
	fill(img, image.Rect(0, 16, 16, 32), p.pants)
	fill(img, image.Rect(16, 48, 32, 64), p.pants)
	fill(img, image.Rect(0, 29, 16, 32), p.shoes)
	fill(img, image.Rect(16, 61, 32, 64), p.shoes)

	// Slim arms leave the outer column of the front face empty.
	if p.armWidth < 4 {
		fill(img, image.Rect(47, 20, 48, 32), color.NRGBA{})
		fill(img, image.Rect(39, 52, 40, 64), color.NRGBA{})
	}
	return img
}

// DefaultAvatar returns the fallback avatar of model at size pixels.
func (p *Processor) DefaultAvatar(model string, size int) ([]byte, error) {
	face, err := p.ExtractFace(DefaultSkinPNG(model))
	if err != nil {
		return nil, err
	}
	return p.Resize(face, size)
}

// DefaultRender returns the fallback render of model.
func (p *Processor) DefaultRender(model string, scale int, helm, body bool) ([]byte, error) {
	return p.RenderModel(DefaultSkinPNG(model), scale, helm, body)
}
