package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

const (
	defaultCategory = "رواية"
	unknownAuthor   = "غير معروف"
)

// terminalStatuses guards every late write: a completed or failed job row is
// never touched again.
var terminalStatuses = []string{types.JobStatusCompleted, types.JobStatusFailed}

// LinkResolver finds the actual file link behind a book's detail page.
type LinkResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// FileDownloader streams a remote file into local storage.
type FileDownloader interface {
	Download(ctx context.Context, fileURL, title string) (path string, size int64, err error)
}

// CoverMaker produces a cover path (or remote URL) for a book without one.
type CoverMaker interface {
	Synthesize(title, author string) string
}

// Notifier pushes job lifecycle events to connected clients. Best effort.
type Notifier interface {
	Broadcast(event string, payload interface{})
}

// AcquisitionRunner executes book requests: resolve the download link behind
// the source page, stream the file, attach a cover, and publish the book.
type AcquisitionRunner struct {
	log      *logger.Logger
	pool     *Pool
	requests repos.BookRequestRepo
	books    repos.BookRepo
	media    *storage.MediaStore
	resolver LinkResolver
	download FileDownloader
	covers   CoverMaker
	notify   Notifier
}

func NewAcquisitionRunner(
	baseLog *logger.Logger,
	pool *Pool,
	requests repos.BookRequestRepo,
	books repos.BookRepo,
	media *storage.MediaStore,
	resolver LinkResolver,
	download FileDownloader,
	covers CoverMaker,
	notify Notifier,
) *AcquisitionRunner {
	return &AcquisitionRunner{
		log:      baseLog.With("runner", "AcquisitionRunner"),
		pool:     pool,
		requests: requests,
		books:    books,
		media:    media,
		resolver: resolver,
		download: download,
		covers:   covers,
		notify:   notify,
	}
}

// Enqueue schedules the request for background processing. The task runs on
// the pool's lifecycle context, not the caller's.
func (r *AcquisitionRunner) Enqueue(id uuid.UUID) {
	r.pool.Submit(func(taskCtx context.Context) {
		r.Process(taskCtx, id)
	})
}

// Process runs one acquisition end to end. Each stage failure lands the job
// in failed with a machine-readable reason; a request already in a terminal
// state is skipped untouched.
func (r *AcquisitionRunner) Process(ctx context.Context, id uuid.UUID) {
	req, err := r.requests.GetByID(ctx, id)
	if err != nil {
		r.log.Error("Failed to load book request", "requestId", id, "error", err)
		return
	}
	if req == nil {
		r.log.Warn("Book request vanished before processing", "requestId", id)
		return
	}
	if types.JobStatusTerminal(req.Status) {
		r.log.Warn("Skipping book request already in terminal state", "requestId", id, "status", req.Status)
		return
	}

	ok, err := r.requests.UpdateFieldsUnlessStatus(ctx, id, terminalStatuses,
		map[string]interface{}{"status": types.JobStatusProcessing})
	if err != nil {
		r.log.Error("Failed to mark book request processing", "requestId", id, "error", err)
		return
	}
	if !ok {
		return
	}

	fileURL, err := r.resolver.Resolve(ctx, req.SourceURL)
	if err != nil {
		r.log.Warn("Download link resolution failed", "requestId", id, "source", req.SourceURL, "error", err)
		r.fail(ctx, id, types.FailReasonResolution)
		return
	}

	path, size, err := r.download.Download(ctx, fileURL, req.Title)
	if err != nil {
		r.log.Warn("Book file download failed", "requestId", id, "url", fileURL, "error", err)
		r.fail(ctx, id, types.FailReasonTransfer)
		return
	}

	author := req.Author
	if author == "" {
		author = unknownAuthor
	}
	cover := req.CoverURL
	if cover == "" {
		cover = r.covers.Synthesize(req.Title, author)
	}

	category := req.Category
	if category == "" {
		category = defaultCategory
	}
	book := &types.Book{
		Title:      req.Title,
		Author:     author,
		Category:   category,
		FileURL:    r.media.PublicURL(path),
		CoverImage: r.media.PublicURL(cover),
		FileType:   strings.TrimPrefix(filepath.Ext(path), "."),
		FileSize:   size,
		Source:     types.BookSourceScraped,
		SourceURL:  req.SourceURL,
	}
	if err := r.books.Create(ctx, book); err != nil {
		r.log.Error("Failed to publish acquired book", "requestId", id, "error", err)
		// The orphaned file would never be referenced; drop it.
		_ = os.Remove(path)
		r.fail(ctx, id, types.FailReasonPersistence)
		return
	}

	ok, err = r.requests.UpdateFieldsUnlessStatus(ctx, id, terminalStatuses, map[string]interface{}{
		"status":    types.JobStatusCompleted,
		"result_id": book.ID,
		"error":     "",
	})
	if err != nil {
		r.log.Error("Failed to complete book request", "requestId", id, "error", err)
		return
	}
	if !ok {
		r.log.Warn("Book request reached a terminal state mid-flight, leaving it untouched", "requestId", id)
		return
	}

	r.log.Info("Book request completed", "requestId", id, "bookId", book.ID)
	if r.notify != nil {
		r.notify.Broadcast("book_request.completed", map[string]interface{}{
			"requestId": id,
			"bookId":    book.ID,
			"title":     book.Title,
		})
	}
}

func (r *AcquisitionRunner) fail(ctx context.Context, id uuid.UUID, reason string) {
	ok, err := r.requests.UpdateFieldsUnlessStatus(ctx, id, terminalStatuses, map[string]interface{}{
		"status": types.JobStatusFailed,
		"error":  reason,
	})
	if err != nil {
		r.log.Error("Failed to mark book request failed", "requestId", id, "reason", reason, "error", err)
		return
	}
	if ok && r.notify != nil {
		r.notify.Broadcast("book_request.failed", map[string]interface{}{
			"requestId": id,
			"reason":    reason,
		})
	}
}
