package covers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/utils"
)

const (
	coverWidth  = 800
	coverHeight = 1200

	titleFontSize = 64
	metaFontSize  = 32

	brandLine = "سولف PDF"

	// DefaultFallbackURL is the stock cover used when synthesis cannot run,
	// e.g. no font file is configured.
	DefaultFallbackURL = "https://images.unsplash.com/photo-1541963463532-d68292c34b19?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&q=80"
)

// Synthesizer renders placeholder covers for acquired books that arrive
// without one. A cover is a vertical gradient with the title, author, and
// brand line centered on it.
type Synthesizer struct {
	log   *logger.Logger
	media *storage.MediaStore
	font  *truetype.Font // nil when no font file was configured
}

func NewSynthesizer(baseLog *logger.Logger, media *storage.MediaStore) *Synthesizer {
	log := baseLog.With("service", "CoverSynthesizer")
	s := &Synthesizer{log: log, media: media}

	fontPath := utils.GetEnv("COVER_FONT", "", log)
	if fontPath == "" {
		log.Warn("COVER_FONT is not set; synthesized covers fall back to the stock image")
		return s
	}
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		log.Error("Failed to read cover font", "path", fontPath, "error", err)
		return s
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		log.Error("Failed to parse cover font", "path", fontPath, "error", err)
		return s
	}
	s.font = f
	return s
}

// Synthesize renders a cover and returns its local path. It never fails the
// caller: any problem yields the stock fallback URL instead.
func (s *Synthesizer) Synthesize(title, author string) string {
	if s.font == nil {
		return DefaultFallbackURL
	}

	dc := gg.NewContext(coverWidth, coverHeight)
	DrawGradient(dc, coverWidth, coverHeight)

	dc.SetRGB255(255, 255, 255)
	dc.SetFontFace(s.face(titleFontSize))
	dc.DrawStringWrapped(title, coverWidth/2, coverHeight/2-100, 0.5, 0.5, coverWidth-120, 1.5, gg.AlignCenter)

	dc.SetFontFace(s.face(metaFontSize))
	dc.DrawStringWrapped(author, coverWidth/2, coverHeight/2+50, 0.5, 0.5, coverWidth-120, 1.5, gg.AlignCenter)
	dc.DrawStringAnchored(brandLine, coverWidth/2, coverHeight-100, 0.5, 0.5)

	name := fmt.Sprintf("cover-%d.png", time.Now().UnixNano())
	path := filepath.Join(s.media.CoversDir(), name)
	if err := dc.SavePNG(path); err != nil {
		s.log.Error("Failed to write synthesized cover", "path", path, "error", err)
		return DefaultFallbackURL
	}
	s.log.Info("Synthesized cover", "path", path, "title", title)
	return path
}

func (s *Synthesizer) face(size float64) font.Face {
	return truetype.NewFace(s.font, &truetype.Options{Size: size})
}

// DrawGradient paints the row-by-row vertical ramp the covers sit on. Kept
// separate from the text pass so the base image is deterministic.
func DrawGradient(dc *gg.Context, w, h int) {
	for y := 0; y < h; y++ {
		dc.SetRGB255(44+y*100/h, 62+y*50/h, 80+y*30/h)
		dc.DrawRectangle(0, float64(y), float64(w), 1)
		dc.Fill()
	}
}
