package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "jobs.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Book{}, &types.BookRequest{}, &types.AIStory{}))
	return db
}

func testMedia(t *testing.T) *storage.MediaStore {
	t.Helper()
	t.Setenv("MEDIA_ROOT", t.TempDir())
	media, err := storage.NewMediaStore(logger.NewNop())
	require.NoError(t, err)
	return media
}

type resolverStub struct {
	url string
	err error
}

func (r *resolverStub) Resolve(ctx context.Context, pageURL string) (string, error) {
	return r.url, r.err
}

type downloaderStub struct {
	path string
	size int64
	err  error
}

func (d *downloaderStub) Download(ctx context.Context, fileURL, title string) (string, int64, error) {
	return d.path, d.size, d.err
}

type coverStub struct{ url string }

func (c *coverStub) Synthesize(title, author string) string { return c.url }

type notifierStub struct {
	mu     sync.Mutex
	events []string
}

func (n *notifierStub) Broadcast(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *notifierStub) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type generatorStub struct {
	text string
	err  error
}

func (g *generatorStub) GenerateStory(ctx context.Context, instruction string) (string, error) {
	return g.text, g.err
}

type illustratorStub struct {
	urls []string
	err  error
}

func (i *illustratorStub) GenerateIllustrations(ctx context.Context, story string, n int) ([]string, error) {
	return i.urls, i.err
}

type rendererStub struct {
	path string
	err  error
}

func (r *rendererStub) Render(title, body string) (string, error) {
	return r.path, r.err
}

func newAcquisitionFixture(t *testing.T, db *gorm.DB, media *storage.MediaStore,
	res LinkResolver, dl FileDownloader, cov CoverMaker, notify Notifier) (*AcquisitionRunner, repos.BookRequestRepo, repos.BookRepo) {
	t.Helper()
	log := logger.NewNop()
	requests := repos.NewBookRequestRepo(db, log)
	books := repos.NewBookRepo(db, log)
	runner := NewAcquisitionRunner(log, NewPool(log, "test", 1, 1), requests, books, media, res, dl, cov, notify)
	return runner, requests, books
}

func TestAcquisitionCompletes(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)

	bookPath := filepath.Join(media.BooksDir(), "123-kitab.pdf")
	notify := &notifierStub{}
	runner, requests, _ := newAcquisitionFixture(t, db, media,
		&resolverStub{url: "https://files.example/kitab.pdf"},
		&downloaderStub{path: bookPath, size: 2048},
		&coverStub{url: "https://covers.example/fallback.jpg"},
		notify,
	)

	req := &types.BookRequest{
		UserID:    uuid.New(),
		Title:     "الأمير الصغير",
		SourceURL: "https://site.example/book/1",
		Status:    types.JobStatusPending,
	}
	require.NoError(t, requests.Create(context.Background(), req))

	runner.Process(context.Background(), req.ID)

	got, err := requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, got.Status)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.ResultID)

	var book types.Book
	require.NoError(t, db.First(&book, "id = ?", got.ResultID).Error)
	assert.Equal(t, "الأمير الصغير", book.Title)
	assert.Equal(t, "غير معروف", book.Author, "missing author falls back to the default")
	assert.Equal(t, "رواية", book.Category, "missing category falls back to the default")
	assert.Equal(t, types.BookSourceScraped, book.Source)
	assert.Equal(t, "/books/123-kitab.pdf", book.FileURL)
	assert.Equal(t, "pdf", book.FileType)
	assert.Equal(t, int64(2048), book.FileSize)
	assert.Equal(t, "https://covers.example/fallback.jpg", book.CoverImage)

	assert.True(t, notify.has("book_request.completed"))
}

func TestAcquisitionResolutionFailure(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)
	notify := &notifierStub{}
	runner, requests, _ := newAcquisitionFixture(t, db, media,
		&resolverStub{err: errors.New("no download link found on page")},
		&downloaderStub{}, &coverStub{}, notify,
	)

	req := &types.BookRequest{UserID: uuid.New(), Title: "كتاب", SourceURL: "https://site.example/x", Status: types.JobStatusPending}
	require.NoError(t, requests.Create(context.Background(), req))

	runner.Process(context.Background(), req.ID)

	got, err := requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status)
	assert.Equal(t, types.FailReasonResolution, got.Error)
	assert.Nil(t, got.ResultID)

	var count int64
	require.NoError(t, db.Model(&types.Book{}).Count(&count).Error)
	assert.Zero(t, count, "a failed acquisition must not publish a book")
	assert.True(t, notify.has("book_request.failed"))
}

func TestAcquisitionDownloadFailure(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)
	runner, requests, _ := newAcquisitionFixture(t, db, media,
		&resolverStub{url: "https://files.example/kitab.pdf"},
		&downloaderStub{err: errors.New("unexpected status 503")},
		&coverStub{}, &notifierStub{},
	)

	req := &types.BookRequest{UserID: uuid.New(), Title: "كتاب", SourceURL: "https://site.example/x", Status: types.JobStatusPending}
	require.NoError(t, requests.Create(context.Background(), req))

	runner.Process(context.Background(), req.ID)

	got, err := requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status)
	assert.Equal(t, types.FailReasonTransfer, got.Error)
}

func TestAcquisitionSkipsTerminalRequest(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)
	runner, requests, _ := newAcquisitionFixture(t, db, media,
		&resolverStub{url: "https://files.example/kitab.pdf"},
		&downloaderStub{path: "/tmp/never.pdf", size: 1},
		&coverStub{}, &notifierStub{},
	)

	req := &types.BookRequest{UserID: uuid.New(), Title: "كتاب", SourceURL: "https://site.example/x", Status: types.JobStatusFailed, Error: types.FailReasonStale}
	require.NoError(t, requests.Create(context.Background(), req))

	runner.Process(context.Background(), req.ID)

	got, err := requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status, "terminal rows are never reprocessed")
	assert.Equal(t, types.FailReasonStale, got.Error)

	var count int64
	require.NoError(t, db.Model(&types.Book{}).Count(&count).Error)
	assert.Zero(t, count)
}

func newGenerationFixture(t *testing.T, db *gorm.DB, media *storage.MediaStore,
	gen StoryGenerator, ill Illustrator, rend DocumentRenderer, notify Notifier) (*GenerationRunner, repos.AIStoryRepo) {
	t.Helper()
	log := logger.NewNop()
	storyRepo := repos.NewAIStoryRepo(db, log)
	books := repos.NewBookRepo(db, log)
	runner := NewGenerationRunner(log, NewPool(log, "test", 1, 1), storyRepo, books, media, gen, ill, rend, nil, notify)
	return runner, storyRepo
}

func TestGenerationCompletesDespiteFailingIllustrations(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)

	pdfPath := filepath.Join(media.StoriesDir(), "story-1.pdf")
	notify := &notifierStub{}
	runner, storyRepo := newGenerationFixture(t, db, media,
		&generatorStub{text: "كان يا ما كان في قديم الزمان."},
		&illustratorStub{err: errors.New("image provider down")},
		&rendererStub{path: pdfPath},
		notify,
	)

	job := &types.AIStory{UserID: uuid.New(), Prompt: "قصة عن البحر", Genre: "مغامرة", Length: types.StoryLengthShort, Language: "ar", Status: types.JobStatusPending}
	require.NoError(t, storyRepo.Create(context.Background(), job))

	runner.Process(context.Background(), job.ID)

	got, err := storyRepo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, got.Status)
	assert.Equal(t, "كان يا ما كان في قديم الزمان.", got.Story)
	assert.Equal(t, "/uploads/stories/story-1.pdf", got.PDFURL)
	assert.Empty(t, got.Images, "illustration failures never fail the job")
	require.NotNil(t, got.BookID)

	var book types.Book
	require.NoError(t, db.First(&book, "id = ?", got.BookID).Error)
	assert.Equal(t, "قصة عن البحر", book.Title)
	assert.Equal(t, "مغامرة", book.Category, "genre becomes the catalog category")
	assert.Equal(t, types.BookSourceAIGenerated, book.Source)
	assert.True(t, notify.has("story.completed"))
}

func TestGenerationModelFailure(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)
	notify := &notifierStub{}
	runner, storyRepo := newGenerationFixture(t, db, media,
		&generatorStub{err: errors.New("rate limited")},
		nil, &rendererStub{path: "x.pdf"}, notify,
	)

	job := &types.AIStory{UserID: uuid.New(), Prompt: "فكرة", Status: types.JobStatusPending}
	require.NoError(t, storyRepo.Create(context.Background(), job))

	runner.Process(context.Background(), job.ID)

	got, err := storyRepo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status)
	assert.Equal(t, types.FailReasonGeneration, got.Error)
	assert.Empty(t, got.Story)
	assert.True(t, notify.has("story.failed"))
}

func TestGenerationRenderFailureKeepsText(t *testing.T) {
	db := openTestDB(t)
	media := testMedia(t)
	runner, storyRepo := newGenerationFixture(t, db, media,
		&generatorStub{text: "نص القصة الكامل."},
		nil,
		&rendererStub{err: errors.New("font missing")},
		&notifierStub{},
	)

	job := &types.AIStory{UserID: uuid.New(), Prompt: "فكرة", Status: types.JobStatusPending}
	require.NoError(t, storyRepo.Create(context.Background(), job))

	runner.Process(context.Background(), job.ID)

	got, err := storyRepo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status)
	assert.Equal(t, types.FailReasonRender, got.Error)
	assert.Equal(t, "نص القصة الكامل.", got.Story, "generated text survives a render failure")
	assert.Empty(t, got.PDFURL)
}

func TestSweepStaleFailsOldJobsOnly(t *testing.T) {
	db := openTestDB(t)
	log := logger.NewNop()
	requests := repos.NewBookRequestRepo(db, log)
	storyRepo := repos.NewAIStoryRepo(db, log)

	stale := &types.BookRequest{UserID: uuid.New(), Title: "قديم", SourceURL: "https://x", Status: types.JobStatusProcessing}
	require.NoError(t, requests.Create(context.Background(), stale))
	require.NoError(t, db.Model(&types.BookRequest{}).Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-2*time.Hour)).Error)

	fresh := &types.BookRequest{UserID: uuid.New(), Title: "جديد", SourceURL: "https://y", Status: types.JobStatusPending}
	require.NoError(t, requests.Create(context.Background(), fresh))

	staleStory := &types.AIStory{UserID: uuid.New(), Prompt: "قديم", Status: types.JobStatusPending}
	require.NoError(t, storyRepo.Create(context.Background(), staleStory))
	require.NoError(t, db.Model(&types.AIStory{}).Where("id = ?", staleStory.ID).
		Update("updated_at", time.Now().Add(-2*time.Hour)).Error)

	SweepStale(context.Background(), log, requests, storyRepo, time.Hour)

	got, err := requests.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, got.Status)
	assert.Equal(t, types.FailReasonStale, got.Error)

	gotFresh, err := requests.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusPending, gotFresh.Status, "jobs inside the grace period are untouched")

	gotStory, err := storyRepo.GetByID(context.Background(), staleStory.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, gotStory.Status)
}

func TestPoolRunsTasksAndRecoversPanics(t *testing.T) {
	log := logger.NewNop()
	pool := NewPool(log, "test", 2, 4)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	var mu sync.Mutex
	done := make(map[int]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		pool.Submit(func(context.Context) {
			defer wg.Done()
			if i == 3 {
				panic(fmt.Sprintf("task %d exploded", i))
			}
			mu.Lock()
			done[i] = true
			mu.Unlock()
		})
	}
	wg.Wait()
	cancel()
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, done, 7, "a panicking task never takes the worker down")
	assert.False(t, done[3])
}
