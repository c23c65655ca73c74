package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/middleware"
	"github.com/sulafhq/sulaf-backend/internal/repos"
)

type BookHandler struct {
	log   *logger.Logger
	books repos.BookRepo
	users repos.UserRepo
}

func NewBookHandler(baseLog *logger.Logger, books repos.BookRepo, users repos.UserRepo) *BookHandler {
	return &BookHandler{
		log:   baseLog.With("handler", "BookHandler"),
		books: books,
		users: users,
	}
}

func (h *BookHandler) ListBooks(c *gin.Context) {
	q := repos.ListBooksQuery{
		Page:     atoiDefault(c.Query("page"), 1),
		Limit:    atoiDefault(c.Query("limit"), 20),
		Category: c.Query("category"),
		Author:   c.Query("author"),
		Language: c.Query("language"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	}

	books, total, err := h.books.List(c.Request.Context(), q)
	if err != nil {
		h.log.Error("Failed to list books", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list books"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	book, err := h.books.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load book", "bookId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if _, err := h.books.IncrementCounter(c.Request.Context(), id, "views"); err != nil {
		h.log.Warn("Failed to bump views", "bookId", id, "error", err)
	}
	c.JSON(http.StatusOK, book)
}

// ReadBook records a reading event for the authenticated user and returns the
// book so the client can open it.
func (h *BookHandler) ReadBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}

	book, err := h.books.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load book", "bookId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if err := h.users.TouchReadingEntry(c.Request.Context(), user.ID, id); err != nil {
		h.log.Warn("Failed to record reading entry", "bookId", id, "userId", user.ID, "error", err)
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) LikeBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	likes, err := h.books.IncrementCounter(c.Request.Context(), id, "likes")
	if err != nil {
		h.log.Error("Failed to like book", "bookId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to like book"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}

// DownloadBook bumps the download counter, stores the book in the user's
// library, and returns the file URL.
func (h *BookHandler) DownloadBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}

	book, err := h.books.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load book", "bookId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	downloads, err := h.books.IncrementCounter(c.Request.Context(), id, "downloads")
	if err != nil {
		h.log.Warn("Failed to bump downloads", "bookId", id, "error", err)
		downloads = book.Downloads
	}
	if err := h.users.EnsureLibraryItem(c.Request.Context(), user.ID, id, true); err != nil {
		h.log.Warn("Failed to add book to library", "bookId", id, "userId", user.ID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"fileUrl":   book.FileURL,
		"fileType":  book.FileType,
		"downloads": downloads,
	})
}

func (h *BookHandler) Categories(c *gin.Context) {
	categories, err := h.books.Categories(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list categories", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *BookHandler) Authors(c *gin.Context) {
	authors, err := h.books.Authors(c.Request.Context(), atoiDefault(c.Query("limit"), 50))
	if err != nil {
		h.log.Error("Failed to list authors", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list authors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
