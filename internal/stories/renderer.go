package stories

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/utils"
)

const (
	attributionLine = "تم إنشاء هذه القصة بواسطة تطبيق سولف PDF باستخدام الذكاء الاصطناعي"

	pageMarginMM  = 20
	bodyFontSize  = 13
	titleFontSize = 22
	bodyLineHt    = 8
)

// Renderer lays out a generated story as an A4 PDF in the stories directory.
type Renderer struct {
	log      *logger.Logger
	media    *storage.MediaStore
	fontPath string // unicode TTF; core fonts cannot shape Arabic
}

func NewRenderer(baseLog *logger.Logger, media *storage.MediaStore) *Renderer {
	log := baseLog.With("service", "StoryRenderer")
	fontPath := utils.GetEnv("STORY_FONT", "", log)
	if fontPath == "" {
		log.Warn("STORY_FONT is not set; story PDFs render with the built-in Latin font")
	}
	return &Renderer{log: log, media: media, fontPath: fontPath}
}

// Render writes the story PDF and returns its local path. Every page carries
// the page counter and the app attribution in the footer.
func (r *Renderer) Render(title, body string) (string, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	doc.SetAutoPageBreak(true, pageMarginMM)

	family := "Arial"
	hasArabicFont := r.fontPath != ""
	if hasArabicFont {
		family = "story"
		doc.AddUTF8Font(family, "", r.fontPath)
	}
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(family, "", 9)
		doc.SetTextColor(127, 140, 141)
		// The attribution line is Arabic; core fonts cannot encode it.
		if hasArabicFont {
			doc.CellFormat(0, 5, attributionLine, "", 1, "C", false, 0, "")
		}
		doc.CellFormat(0, 5, fmt.Sprintf("%d", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	doc.SetTextColor(44, 62, 80)
	doc.SetFont(family, "", titleFontSize)
	doc.MultiCell(0, 12, title, "", "C", false)
	doc.Ln(6)

	doc.SetTextColor(0, 0, 0)
	doc.SetFont(family, "", bodyFontSize)
	align := "R"
	if !hasArabicFont {
		align = "L"
	}
	doc.MultiCell(0, bodyLineHt, body, "", align, false)

	name := fmt.Sprintf("story-%d.pdf", time.Now().UnixNano())
	path := filepath.Join(r.media.StoriesDir(), name)
	if err := doc.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write story pdf: %w", err)
	}
	r.log.Info("Rendered story PDF", "path", path, "title", title)
	return path, nil
}
