package baseline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Differ computes how far two screenshots have drifted apart, as a percentage
// of pixels: 0 identical, 100 maximally different, monotonic in between.
type Differ interface {
	Diff(baseline, current []byte) (float64, error)
}

// PixelDiffer counts pixels whose color moved further than ChannelTolerance
// on any RGBA channel (8-bit scale). The tolerance absorbs encoder and
// anti-aliasing noise; zero means exact comparison.
type PixelDiffer struct {
	ChannelTolerance uint8
}

// NewDiffer returns the stock differ used by the comparator
func NewDiffer() PixelDiffer {
	return PixelDiffer{ChannelTolerance: 16}
}

// Diff decodes both PNGs and returns the changed-pixel percentage. Images of
// different dimensions count as maximally different: a size change is a
// layout change, not noise.
func (d PixelDiffer) Diff(baseline, current []byte) (float64, error) {
	if bytes.Equal(baseline, current) {
		return 0, nil
	}

	base, err := png.Decode(bytes.NewReader(baseline))
	if err != nil {
		return 0, fmt.Errorf("decode baseline image: %w", err)
	}
	cur, err := png.Decode(bytes.NewReader(current))
	if err != nil {
		return 0, fmt.Errorf("decode current image: %w", err)
	}

	bb, cb := base.Bounds(), cur.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		return 100, nil
	}
	total := bb.Dx() * bb.Dy()
	if total == 0 {
		return 0, nil
	}

	changed := 0
	for y := 0; y < bb.Dy(); y++ {
		for x := 0; x < bb.Dx(); x++ {
			if d.pixelChanged(base, cur, bb, cb, x, y) {
				changed++
			}
		}
	}
	return float64(changed) * 100 / float64(total), nil
}

func (d PixelDiffer) pixelChanged(base, cur image.Image, bb, cb image.Rectangle, x, y int) bool {
	br, bg, bbl, ba := base.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
	cr, cg, cbl, ca := cur.At(cb.Min.X+x, cb.Min.Y+y).RGBA()

	tol := uint32(d.ChannelTolerance)
	return delta8(br, cr) > tol || delta8(bg, cg) > tol || delta8(bbl, cbl) > tol || delta8(ba, ca) > tol
}

// delta8 compares two 16-bit color values on the 8-bit scale
func delta8(a, b uint32) uint32 {
	a, b = a>>8, b>>8
	if a > b {
		return a - b
	}
	return b - a
}
