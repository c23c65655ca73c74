package jobs

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/stories"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

const (
	storyCategory    = "قصة"
	storyAuthor      = "سولف PDF"
	maxTitleRunes    = 60
	illustrationsPer = 3
)

// StoryGenerator produces the story text for a writing instruction.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, instruction string) (string, error)
}

// Illustrator produces scene illustration URLs for a finished story.
type Illustrator interface {
	GenerateIllustrations(ctx context.Context, story string, n int) ([]string, error)
}

// DocumentRenderer lays a story out as a downloadable document.
type DocumentRenderer interface {
	Render(title, body string) (string, error)
}

// GenerationRunner executes AI story jobs: generate the text, render the PDF,
// optionally illustrate, and publish the result to the catalog. The text is
// persisted the moment the model returns it, so later stage failures never
// lose the story.
type GenerationRunner struct {
	log         *logger.Logger
	pool        *Pool
	storyRepo   repos.AIStoryRepo
	books       repos.BookRepo
	media       *storage.MediaStore
	generator   StoryGenerator
	illustrator Illustrator // nil disables illustrations
	renderer    DocumentRenderer
	covers      CoverMaker
	notify      Notifier
}

func NewGenerationRunner(
	baseLog *logger.Logger,
	pool *Pool,
	storyRepo repos.AIStoryRepo,
	books repos.BookRepo,
	media *storage.MediaStore,
	generator StoryGenerator,
	illustrator Illustrator,
	renderer DocumentRenderer,
	covers CoverMaker,
	notify Notifier,
) *GenerationRunner {
	return &GenerationRunner{
		log:         baseLog.With("runner", "GenerationRunner"),
		pool:        pool,
		storyRepo:   storyRepo,
		books:       books,
		media:       media,
		generator:   generator,
		illustrator: illustrator,
		renderer:    renderer,
		covers:      covers,
		notify:      notify,
	}
}

func (r *GenerationRunner) Enqueue(id uuid.UUID) {
	r.pool.Submit(func(taskCtx context.Context) {
		r.Process(taskCtx, id)
	})
}

func (r *GenerationRunner) Process(ctx context.Context, id uuid.UUID) {
	job, err := r.storyRepo.GetByID(ctx, id)
	if err != nil {
		r.log.Error("Failed to load story job", "storyId", id, "error", err)
		return
	}
	if job == nil {
		r.log.Warn("Story job vanished before processing", "storyId", id)
		return
	}
	if types.JobStatusTerminal(job.Status) {
		r.log.Warn("Skipping story job already in terminal state", "storyId", id, "status", job.Status)
		return
	}

	ok, err := r.storyRepo.UpdateFieldsUnlessStatus(ctx, id, terminalStatuses,
		map[string]interface{}{"status": types.JobStatusProcessing})
	if err != nil {
		r.log.Error("Failed to mark story job processing", "storyId", id, "error", err)
		return
	}
	if !ok {
		return
	}

	instruction := stories.BuildInstruction(job.Prompt, job.Genre, job.Length, job.Language)
	text, err := r.generator.GenerateStory(ctx, instruction)
	if err != nil || strings.TrimSpace(text) == "" {
		r.log.Warn("Story generation failed", "storyId", id, "error", err)
		r.fail(ctx, id, types.FailReasonGeneration)
		return
	}

	// Persist the text before rendering anything.
	if err := r.storyRepo.UpdateFields(ctx, id, map[string]interface{}{"story": text}); err != nil {
		r.log.Error("Failed to persist story text", "storyId", id, "error", err)
		r.fail(ctx, id, types.FailReasonPersistence)
		return
	}

	title := storyTitle(job.Prompt)
	pdfPath, err := r.renderer.Render(title, text)
	if err != nil {
		r.log.Warn("Story PDF render failed, text is kept", "storyId", id, "error", err)
		r.fail(ctx, id, types.FailReasonRender)
		return
	}
	pdfURL := r.media.PublicURL(pdfPath)
	if err := r.storyRepo.UpdateFields(ctx, id, map[string]interface{}{"pdf_url": pdfURL}); err != nil {
		r.log.Error("Failed to persist story pdf url", "storyId", id, "error", err)
		r.fail(ctx, id, types.FailReasonPersistence)
		return
	}

	r.illustrate(ctx, id, text)

	book := r.publishBook(ctx, job, title, text, pdfURL)

	updates := map[string]interface{}{
		"status": types.JobStatusCompleted,
		"error":  "",
	}
	if book != nil {
		updates["book_id"] = book.ID
	}
	ok, err = r.storyRepo.UpdateFieldsUnlessStatus(ctx, id, terminalStatuses, updates)
	if err != nil {
		r.log.Error("Failed to complete story job", "storyId", id, "error", err)
		return
	}
	if !ok {
		r.log.Warn("Story job reached a terminal state mid-flight, leaving it untouched", "storyId", id)
		return
	}

	r.log.Info("Story job completed", "storyId", id)
	if r.notify != nil {
		payload := map[string]interface{}{"storyId": id, "pdfUrl": pdfURL}
		if book != nil {
			payload["bookId"] = book.ID
		}
		r.notify.Broadcast("story.completed", payload)
	}
}

// illustrate is best effort: a provider error or a missing illustrator leaves
// the job without images, never failed.
func (r *GenerationRunner) illustrate(ctx context.Context, id uuid.UUID, text string) {
	if r.illustrator == nil {
		return
	}
	urls, err := r.illustrator.GenerateIllustrations(ctx, text, illustrationsPer)
	if err != nil {
		r.log.Warn("Story illustration failed", "storyId", id, "error", err)
		return
	}
	if len(urls) == 0 {
		return
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return
	}
	if err := r.storyRepo.UpdateFields(ctx, id, map[string]interface{}{"images": datatypes.JSON(raw)}); err != nil {
		r.log.Warn("Failed to persist story illustrations", "storyId", id, "error", err)
	}
}

// publishBook adds the finished story to the catalog so it shows up next to
// acquired books. Failure only logs; the story job still completes.
func (r *GenerationRunner) publishBook(ctx context.Context, job *types.AIStory, title, text, pdfURL string) *types.Book {
	category := storyCategory
	if job.Genre != "" {
		category = job.Genre
	}
	cover := ""
	if r.covers != nil {
		cover = r.media.PublicURL(r.covers.Synthesize(title, storyAuthor))
	}
	book := &types.Book{
		Title:       title,
		Author:      storyAuthor,
		Description: job.Prompt,
		Category:    category,
		Language:    orDefault(job.Language, "ar"),
		FileURL:     pdfURL,
		CoverImage:  cover,
		FileType:    "pdf",
		Source:      types.BookSourceAIGenerated,
	}
	if err := r.books.Create(ctx, book); err != nil {
		r.log.Warn("Failed to publish generated story to catalog", "storyId", job.ID, "error", err)
		return nil
	}
	return book
}

func (r *GenerationRunner) fail(ctx context.Context, id uuid.UUID, reason string) {
	ok, err := r.storyRepo.UpdateFieldsUnlessStatus(ctx, id, terminalStatuses, map[string]interface{}{
		"status": types.JobStatusFailed,
		"error":  reason,
	})
	if err != nil {
		r.log.Error("Failed to mark story job failed", "storyId", id, "reason", reason, "error", err)
		return
	}
	if ok && r.notify != nil {
		r.notify.Broadcast("story.failed", map[string]interface{}{
			"storyId": id,
			"reason":  reason,
		})
	}
}

func storyTitle(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	runes := []rune(prompt)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes]) + "…"
	}
	if prompt == "" {
		return "قصة بدون عنوان"
	}
	return prompt
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
