package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/storage"
)

const (
	downloadTimeout = 5 * time.Minute
	maxNameRunes    = 80
	defaultExt      = ".pdf"
)

// Service streams remote book files to local storage. Files land under the
// media store's books directory; nothing is buffered in memory.
type Service struct {
	log    *logger.Logger
	media  *storage.MediaStore
	client *http.Client
}

func NewService(baseLog *logger.Logger, media *storage.MediaStore) *Service {
	return &Service{
		log:    baseLog.With("service", "DownloaderService"),
		media:  media,
		client: &http.Client{Timeout: downloadTimeout},
	}
}

// Download fetches fileURL into the books directory and returns the final
// path and byte size. The write goes through a temp file that is removed on
// every failure path, so a half-written book is never left behind.
func (s *Service) Download(ctx context.Context, fileURL, title string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build download request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch %s: %w", fileURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, fileURL)
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), sanitizeTitle(title), extensionFor(fileURL))
	finalPath := filepath.Join(s.media.BooksDir(), name)
	tmpPath := finalPath + ".part"

	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("stream %s: %w", fileURL, err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("truncated download: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("finalize download: %w", err)
	}

	s.log.Info("Downloaded book file", "url", fileURL, "path", finalPath, "bytes", written)
	return finalPath, written, nil
}

// sanitizeTitle keeps letters and digits from any script and collapses the
// rest to underscores so Arabic titles survive as filenames.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "book"
	}
	runes := []rune(out)
	if len(runes) > maxNameRunes {
		out = string(runes[:maxNameRunes])
	}
	return out
}

func extensionFor(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return defaultExt
	}
	switch ext := strings.ToLower(filepath.Ext(u.Path)); ext {
	case ".pdf", ".epub", ".txt":
		return ext
	default:
		return defaultExt
	}
}
