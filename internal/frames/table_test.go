package frames

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDense(t *testing.T) {
	tbl, err := Build([]ID{10, 13, 17})
	require.NoError(t, err)
	require.Equal(t, 8, tbl.Len())

	want := []ID{10, 10, 10, 13, 13, 13, 13, 17}
	for i, w := range want {
		assert.Equalf(t, w, tbl.At(i), "position %d", i)
	}
	assert.Equal(t, ID(10), tbl.First())
	assert.Equal(t, ID(17), tbl.Last())
}

func TestBuildGreatestKeyframeAtOrBefore(t *testing.T) {
	sets := [][]ID{
		{5},
		{0, 1, 2, 3},
		{541, 545, 548, 552, 556, 560},
		{-4, 0, 9, 10, 30},
	}
	for _, kf := range sets {
		tbl, err := Build(kf)
		require.NoError(t, err)
		for pos := kf[0]; pos <= kf[len(kf)-1]; pos++ {
			var want ID
			for _, k := range kf {
				if k <= pos {
					want = k
				}
			}
			require.Equalf(t, want, tbl.At(int(pos-kf[0])), "keyframes %v position %d", kf, pos)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptyKeyframeSet)

	_, err = Build([]ID{3, 3})
	assert.ErrorIs(t, err, ErrUnorderedKeyframes)

	_, err = Build([]ID{5, 2})
	assert.ErrorIs(t, err, ErrUnorderedKeyframes)
}

func TestIndexOf(t *testing.T) {
	tbl, err := Build([]ID{10, 13, 17})
	require.NoError(t, err)

	i, ok := tbl.IndexOf(13)
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	i, ok = tbl.IndexOf(17)
	assert.True(t, ok)
	assert.Equal(t, 7, i)

	for _, id := range []ID{9, 11, 16, 18} {
		_, ok = tbl.IndexOf(id)
		assert.Falsef(t, ok, "id %d", id)
	}
}

func TestMarkersResolve(t *testing.T) {
	tbl, err := Build([]ID{0, 2, 4, 6, 8, 10, 12})
	require.NoError(t, err)

	m := Markers{
		TiktokLoop: Range{L: 0, R: 4},
		AlarmFrame: 6,
		AlarmLoop:  Range{L: 8, R: 12},
	}
	ix, err := m.Resolve(tbl)
	require.NoError(t, err)
	assert.Equal(t, Indices{TiktokStart: 0, TiktokEnd: 4, AlarmFrame: 6, AlarmLoopStart: 8, AlarmLoopEnd: 12, Len: 13}, ix)

	bad := m
	bad.AlarmFrame = 7
	_, err = bad.Resolve(tbl)
	assert.ErrorIs(t, err, ErrInvalidFrameMarker)

	swapped := m
	swapped.AlarmLoop = Range{L: 12, R: 8}
	_, err = swapped.Resolve(tbl)
	assert.ErrorIs(t, err, ErrInvalidFrameMarker)

	overlap := m
	overlap.AlarmFrame = 2
	_, err = overlap.Resolve(tbl)
	assert.ErrorIs(t, err, ErrInvalidFrameMarker)
}

func writePNG(t *testing.T, dir string, id ID) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, strconv.Itoa(int(id))+".png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestDirResolverAndPreload(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []ID{1, 3} {
		writePNG(t, dir, id)
	}
	r := NewDirResolver(dir, ".png")

	img, err := r.Resolve(3)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	again, err := r.Resolve(3)
	require.NoError(t, err)
	assert.Same(t, img, again)

	require.NoError(t, Preload(context.Background(), r, []ID{1, 3}, 2))

	err = Preload(context.Background(), r, []ID{1, 2, 3}, 2)
	assert.ErrorIs(t, err, ErrFrameMissing)
}
