package display

import (
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/usagiclock/internal/frames"
	"github.com/coreman2200/usagiclock/internal/sequence"
)

type recDrawer struct {
	draws int
	last  image.Image
}

func (d *recDrawer) String() string          { return "rec" }
func (d *recDrawer) Halt() error             { return nil }
func (d *recDrawer) ColorModel() color.Model { return color.RGBAModel }
func (d *recDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, 8, 4) }
func (d *recDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.draws++
	d.last = src
	return nil
}

type mapResolver map[frames.ID]image.Image

func (m mapResolver) Resolve(id frames.ID) (image.Image, error) {
	img, ok := m[id]
	if !ok {
		return nil, frames.ErrFrameMissing
	}
	return img, nil
}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSinkScalesAndSkipsRepeats(t *testing.T) {
	d := &recDrawer{}
	s := New(d, mapResolver{
		1: solid(color.RGBA{R: 255, A: 255}),
		2: solid(color.RGBA{B: 255, A: 255}),
	}, "test", zerolog.Nop())

	require.NoError(t, s.Write(sequence.Frame{ID: 1}))
	require.NoError(t, s.Write(sequence.Frame{ID: 1}))
	assert.Equal(t, 1, d.draws)
	assert.Equal(t, image.Rect(0, 0, 8, 4), d.last.Bounds())
	r, _, b, _ := d.last.At(3, 2).RGBA()
	assert.Greater(t, r, b)

	require.NoError(t, s.Write(sequence.Frame{ID: 2}))
	assert.Equal(t, 2, d.draws)

	require.NoError(t, s.Halt())
	require.NoError(t, s.Write(sequence.Frame{ID: 2}))
	assert.Equal(t, 3, d.draws)
}

func TestSinkMissingFrame(t *testing.T) {
	s := New(&recDrawer{}, mapResolver{}, "test", zerolog.Nop())
	assert.ErrorIs(t, s.Write(sequence.Frame{ID: 9}), frames.ErrFrameMissing)
}
