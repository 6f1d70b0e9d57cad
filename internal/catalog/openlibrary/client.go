package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

var (
	ErrInvalidISBN = errors.New("invalid ISBN")
	ErrNotFound    = errors.New("no Open Library record for ISBN")
)

var (
	yearRegex  = regexp.MustCompile(`\b(\d{4})\b`)
	pagesRegex = regexp.MustCompile(`(\d+)`)
)

const (
	maxSubjects     = 5
	maxSubjectChars = 50
	maxSubjectWords = 5
)

// Client fetches book metadata from the Open Library books API.
type Client struct {
	baseURL  string
	coverURL string
	http     *http.Client
	logger   *logger.Logger
}

func NewClient(cfg config.CatalogConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.OpenLibraryURL, "/"),
		coverURL: strings.TrimRight(cfg.CoverURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   log,
	}
}

// FetchByISBN looks up an ISBN and maps the record to a book request
// ready for the catalog, with one copy by default.
func (c *Client) FetchByISBN(ctx context.Context, rawISBN string) (*models.BookRequest, error) {
	isbn := CleanISBN(rawISBN)
	if !ValidateISBN(isbn) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidISBN, rawISBN)
	}

	bibkey := "ISBN:" + isbn
	query := url.Values{}
	query.Set("bibkeys", bibkey)
	query.Set("jscmd", "data")
	query.Set("format", "json")

	reqURL := fmt.Sprintf("%s/api/books?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open library request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open library returned status %d", resp.StatusCode)
	}

	var records map[string]rawBook
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode open library response: %w", err)
	}

	record, ok := records[bibkey]
	if !ok || record.Title == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}

	c.logger.Info("CATALOG", fmt.Sprintf("open library hit for %s: %q", isbn, record.Title))
	return c.toBookRequest(isbn, record), nil
}

func (c *Client) toBookRequest(isbn string, record rawBook) *models.BookRequest {
	req := &models.BookRequest{
		Title:    record.Title,
		ISBN:     isbn,
		Summary:  string(record.Description),
		CoverURL: fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coverURL, isbn),
		Copies:   1,
	}

	for _, author := range record.Authors {
		if author.Name != "" {
			req.Authors = append(req.Authors, author.Name)
		}
	}
	if len(record.Publishers) > 0 {
		req.Publisher = record.Publishers[0].Name
	}
	if match := yearRegex.FindString(record.PublishDate); match != "" {
		req.Year, _ = strconv.Atoi(match)
	}

	req.Pages = record.NumberOfPages
	if req.Pages == 0 && record.Pagination != "" {
		if match := pagesRegex.FindString(record.Pagination); match != "" {
			req.Pages, _ = strconv.Atoi(match)
		}
	}

	req.Genres = filterSubjects(record.Subjects)
	return req
}

// filterSubjects keeps the short, genre-like subjects. Open Library
// records carry dozens of catalog subjects; anything long-winded is
// noise for our genre list.
func filterSubjects(subjects []rawName) []string {
	var genres []string
	for _, subject := range subjects {
		name := strings.TrimSpace(subject.Name)
		if name == "" || len(name) > maxSubjectChars {
			continue
		}
		if len(strings.Fields(name)) > maxSubjectWords {
			continue
		}
		genres = append(genres, name)
		if len(genres) == maxSubjects {
			break
		}
	}
	return genres
}
