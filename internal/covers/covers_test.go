package covers

import (
	"image/color"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/storage"
)

func TestDrawGradientIsDeterministic(t *testing.T) {
	render := func() *gg.Context {
		dc := gg.NewContext(80, 120)
		DrawGradient(dc, 80, 120)
		return dc
	}
	a, b := render().Image(), render().Image()

	for y := 0; y < 120; y += 7 {
		for x := 0; x < 80; x += 11 {
			assert.Equal(t, a.At(x, y), b.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestDrawGradientRamp(t *testing.T) {
	dc := gg.NewContext(80, 120)
	DrawGradient(dc, 80, 120)
	img := dc.Image()

	top := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	assert.Equal(t, uint8(44), top.R)
	assert.Equal(t, uint8(62), top.G)
	assert.Equal(t, uint8(80), top.B)

	bottom := color.NRGBAModel.Convert(img.At(79, 119)).(color.NRGBA)
	assert.Greater(t, bottom.R, top.R, "red ramps down the cover")
	assert.Greater(t, bottom.G, top.G)
	assert.Greater(t, bottom.B, top.B)
}

func TestSynthesizeWithoutFontFallsBack(t *testing.T) {
	t.Setenv("MEDIA_ROOT", t.TempDir())
	t.Setenv("COVER_FONT", "")
	media, err := storage.NewMediaStore(logger.NewNop())
	require.NoError(t, err)

	s := NewSynthesizer(logger.NewNop(), media)
	assert.Equal(t, DefaultFallbackURL, s.Synthesize("عنوان", "مؤلف"))
}

func TestSynthesizeWithUnreadableFontFallsBack(t *testing.T) {
	t.Setenv("MEDIA_ROOT", t.TempDir())
	t.Setenv("COVER_FONT", "/nonexistent/font.ttf")
	media, err := storage.NewMediaStore(logger.NewNop())
	require.NoError(t, err)

	s := NewSynthesizer(logger.NewNop(), media)
	assert.Equal(t, DefaultFallbackURL, s.Synthesize("عنوان", "مؤلف"))
}
