package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

const sourcePage = `<!DOCTYPE html>
<html><body>
  <div class="book">
    <span class="book-title"><a href="/books/first">الأمير الصغير</a></span>
    <span class="book-author">أنطوان</span>
    <span class="book-cover"><img src="/covers/first.jpg"></span>
    <span class="book-desc">قصة قصيرة</span>
  </div>
  <div class="book">
    <span class="book-title"><a href="https://elsewhere.example/second">رواية ثانية</a></span>
    <span class="book-cover"><img src="/covers/second.jpg"></span>
  </div>
  <div class="book">
    <span class="book-title"><a></a></span>
  </div>
</body></html>`

type catalogStub struct {
	books []*types.Book
	err   error
}

func (c *catalogStub) SearchCatalog(ctx context.Context, query string, limit int) ([]*types.Book, error) {
	return c.books, c.err
}

func testSelectors() Selectors {
	return Selectors{
		Items:       ".book",
		Title:       ".book-title a",
		Author:      ".book-author",
		Link:        ".book-title a",
		Cover:       ".book-cover img",
		Description: ".book-desc",
	}
}

func TestSearchRejectsShortQueryBeforeAnyFetch(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	sources := []Source{{Name: "A", BaseURL: srv.URL, SearchURL: srv.URL + "/search?q=", Selectors: testSelectors()}}
	svc := NewService(logger.NewNop(), &catalogStub{}, sources, nil)

	_, err := svc.Search(context.Background(), "a")
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Search(context.Background(), "   ")
	require.ErrorIs(t, err, ErrInvalidQuery)

	assert.Equal(t, int64(0), hits.Load(), "no network call may happen for an invalid query")
}

func TestSearchExtractsAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sourcePage))
	}))
	defer srv.Close()

	sources := []Source{{Name: "A", BaseURL: srv.URL, SearchURL: srv.URL + "/search?q=", Selectors: testSelectors()}}
	svc := NewService(logger.NewNop(), nil, sources, nil)

	results, err := svc.Search(context.Background(), "الأمير")
	require.NoError(t, err)
	require.Len(t, results, 2, "items without a title are skipped")

	first := results[0]
	assert.Equal(t, "A", first.Source)
	assert.Equal(t, "الأمير الصغير", first.Title)
	assert.Equal(t, "أنطوان", first.Author)
	assert.Equal(t, srv.URL+"/books/first", first.Link, "relative links resolve against the base URL")
	assert.Equal(t, srv.URL+"/covers/first.jpg", first.Cover)
	assert.Equal(t, "قصة قصيرة", first.Description)
	assert.True(t, first.External)

	second := results[1]
	assert.Equal(t, "https://elsewhere.example/second", second.Link, "absolute links pass through")
	assert.Equal(t, "غير معروف", second.Author)
	assert.Equal(t, "لا يوجد وصف", second.Description)
}

func TestSearchIsolatesFailingSources(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sourcePage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	sources := []Source{
		{Name: "Bad", BaseURL: bad.URL, SearchURL: bad.URL + "/search?q=", Selectors: testSelectors()},
		{Name: "Good", BaseURL: good.URL, SearchURL: good.URL + "/search?q=", Selectors: testSelectors()},
	}
	catalog := &catalogStub{books: []*types.Book{{Title: "كتاب داخلي", Author: "مؤلف", CoverImage: "/uploads/covers/x.png"}}}
	svc := NewService(logger.NewNop(), catalog, sources, nil)

	results, err := svc.Search(context.Background(), "كتاب")
	require.NoError(t, err, "a failing source never fails the search")

	var goodCount, internalCount int
	for _, r := range results {
		switch r.Source {
		case "Good":
			goodCount++
		case "سولف PDF":
			internalCount++
			assert.False(t, r.External)
			require.NotNil(t, r.BookID)
		case "Bad":
			t.Fatalf("failed source must contribute zero results, got %+v", r)
		}
	}
	assert.Equal(t, 2, goodCount, "healthy source contribution is unaffected")
	assert.Equal(t, 1, internalCount)
}

func TestSearchCapsItemsPerSource(t *testing.T) {
	page := "<html><body>"
	for i := 0; i < 25; i++ {
		page += `<div class="book"><span class="book-title"><a href="/b">كتاب</a></span></div>`
	}
	page += "</body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	sources := []Source{{Name: "A", BaseURL: srv.URL, SearchURL: srv.URL + "/?q=", Selectors: testSelectors()}}
	svc := NewService(logger.NewNop(), nil, sources, nil)

	results, err := svc.Search(context.Background(), "كتاب")
	require.NoError(t, err)
	assert.Len(t, results, maxItemsPerSource)
}
