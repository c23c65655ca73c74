package scraper

// Selectors maps the fields of a search-result item to CSS selectors inside
// one source's markup. A single generic extraction routine consumes these;
// adding a source is a data change, not a code change.
type Selectors struct {
	Items       string
	Title       string
	Author      string
	Link        string
	Cover       string
	Description string
}

// Source describes one externally searchable book catalog.
type Source struct {
	Name      string
	BaseURL   string
	SearchURL string // query is path/URL-escaped and appended
	Selectors Selectors
}

// DefaultSources is the registry of Arabic book catalogs the external search
// fans out to.
func DefaultSources() []Source {
	return []Source{
		{
			Name:      "مكتبة نور",
			BaseURL:   "https://www.noor-book.com",
			SearchURL: "https://www.noor-book.com/بحث/كتاب/",
			Selectors: Selectors{
				Items:       ".book",
				Title:       ".book-title a",
				Author:      ".book-author",
				Link:        ".book-title a",
				Cover:       ".book-cover img",
				Description: ".book-desc",
			},
		},
		{
			Name:      "مكتبة الكتب",
			BaseURL:   "https://www.kutub-pdf.net",
			SearchURL: "https://www.kutub-pdf.net/search?q=",
			Selectors: Selectors{
				Items:       ".book-item",
				Title:       ".book-title",
				Author:      ".book-author",
				Link:        "a",
				Cover:       "img",
				Description: ".book-description",
			},
		},
		{
			Name:      "مكتبة العرب",
			BaseURL:   "https://www.arab-books.com",
			SearchURL: "https://www.arab-books.com/search/",
			Selectors: Selectors{
				Items:       ".book",
				Title:       ".title",
				Author:      ".author",
				Link:        "a",
				Cover:       "img",
				Description: ".desc",
			},
		},
		{
			Name:      "مكتبة المليون كتاب",
			BaseURL:   "https://www.million-books.com",
			SearchURL: "https://www.million-books.com/search.php?q=",
			Selectors: Selectors{
				Items:       ".book",
				Title:       "h3",
				Author:      ".author",
				Link:        "a",
				Cover:       "img",
				Description: ".description",
			},
		},
	}
}
