package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/utils"
)

// MediaStore owns the on-disk layout for everything the pipelines produce:
// acquired book files, synthesized covers, TTS audio, and rendered story
// documents. Filenames inside these directories are timestamped by their
// producers and never reused.
type MediaStore struct {
	root string
	log  *logger.Logger
}

func NewMediaStore(baseLog *logger.Logger) (*MediaStore, error) {
	log := baseLog.With("service", "MediaStore")
	root := utils.GetEnv("MEDIA_ROOT", ".", log)

	ms := &MediaStore{root: root, log: log}
	for _, dir := range []string{
		ms.BooksDir(),
		ms.UploadedBooksDir(),
		ms.CoversDir(),
		ms.AudioDir(),
		ms.StoriesDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", dir, err)
		}
	}
	return ms, nil
}

func (m *MediaStore) Root() string { return m.root }

// BooksDir holds files acquired from external sites.
func (m *MediaStore) BooksDir() string { return filepath.Join(m.root, "books") }

// UploadedBooksDir holds files uploaded directly through the API.
func (m *MediaStore) UploadedBooksDir() string { return filepath.Join(m.root, "uploads", "books") }

func (m *MediaStore) CoversDir() string  { return filepath.Join(m.root, "uploads", "covers") }
func (m *MediaStore) AudioDir() string   { return filepath.Join(m.root, "uploads", "audio") }
func (m *MediaStore) StoriesDir() string { return filepath.Join(m.root, "uploads", "stories") }

// PublicURL maps a local path inside the media root to the URL path it is
// served under. Absolute http(s) references pass through untouched so cover
// fallbacks can point at remote placeholders.
func (m *MediaStore) PublicURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return path
	}
	return "/" + filepath.ToSlash(rel)
}
