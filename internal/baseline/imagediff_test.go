package baseline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	colorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorBlack = color.RGBA{A: 255}
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func TestDiffIdenticalImages(t *testing.T) {
	img := solid(t, 10, 10, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	d := NewDiffer()

	pct, err := d.Diff(img, img)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
}

func TestDiffSinglePixel(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 10, 10))
	cur := image.NewRGBA(image.Rect(0, 0, 10, 10))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			base.SetRGBA(x, y, white)
			cur.SetRGBA(x, y, white)
		}
	}
	cur.SetRGBA(4, 4, color.RGBA{A: 255}) // one black pixel out of 100

	pct, err := NewDiffer().Diff(encodePNG(t, base), encodePNG(t, cur))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pct, 1e-9)
}

func TestDiffCompletelyDifferent(t *testing.T) {
	white := solid(t, 8, 8, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	black := solid(t, 8, 8, color.RGBA{A: 255})

	pct, err := NewDiffer().Diff(white, black)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestDiffDimensionMismatchIsMaximal(t *testing.T) {
	a := solid(t, 10, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	b := solid(t, 10, 12, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	pct, err := NewDiffer().Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestDiffToleratesEncoderNoise(t *testing.T) {
	// a 10/255 channel wiggle sits under the stock tolerance of 16
	a := solid(t, 10, 10, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	b := solid(t, 10, 10, color.RGBA{R: 210, G: 200, B: 195, A: 255})

	pct, err := NewDiffer().Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)

	// exact mode flags the same wiggle
	pct, err = PixelDiffer{}.Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}

func TestDiffMonotonicInChangedArea(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}

	withBlackRows := func(rows int) []byte {
		img := image.NewRGBA(image.Rect(0, 0, 10, 10))
		for y := 0; y < 10; y++ {
			c := white
			if y < rows {
				c = black
			}
			for x := 0; x < 10; x++ {
				img.SetRGBA(x, y, c)
			}
		}
		return encodePNG(t, img)
	}

	base := withBlackRows(0)
	d := NewDiffer()
	prev := -1.0
	for rows := 0; rows <= 10; rows += 2 {
		pct, err := d.Diff(base, withBlackRows(rows))
		require.NoError(t, err)
		assert.Greater(t, pct, prev, "rows=%d", rows)
		prev = pct
	}
}

func TestDiffRejectsUndecodableInput(t *testing.T) {
	good := solid(t, 4, 4, color.RGBA{A: 255})

	_, err := NewDiffer().Diff([]byte("not a png"), good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode baseline")

	_, err = NewDiffer().Diff(good, []byte("not a png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode current")
}
