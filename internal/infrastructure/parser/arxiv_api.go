package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/scanner"
)

const (
	// ArxivAPIName registers the export API strategy.
	ArxivAPIName = "arxiv-api"

	defaultAPIBaseURL = "http://export.arxiv.org/api/query"
	defaultMaxResults = 1000
	queryDayLayout    = "20060102"
)

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// ArxivAPIScanner queries the arXiv export API for papers updated inside the window.
type ArxivAPIScanner struct {
	client  *http.Client
	baseURL string
}

// NewArxivAPIScanner wires an HTTP client; an empty baseURL selects the public endpoint.
func NewArxivAPIScanner(client *http.Client, baseURL string) *ArxivAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &ArxivAPIScanner{client: client, baseURL: baseURL}
}

// Name identifies the strategy inside the registry.
func (a *ArxivAPIScanner) Name() string {
	return ArxivAPIName
}

// Scan issues a single query covering every category, newest updates first.
func (a *ArxivAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("arxiv api: no categories requested")
	}

	reqURL := a.baseURL + "?" + buildSearchQuery(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv api: build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "PaperFeed/1.0")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("arxiv api: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv api: unexpected status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv api: parse feed: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper, ok := entryToPaper(entry)
		if !ok {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// buildSearchQuery renders (cat:a OR cat:b) AND lastUpdatedDate:[from TO to].
func buildSearchQuery(req scanner.Request) string {
	conditions := make([]string, 0, len(req.Categories))
	for _, cat := range req.Categories {
		conditions = append(conditions, "cat:"+strings.TrimSpace(cat))
	}
	search := fmt.Sprintf("(%s) AND lastUpdatedDate:[%s TO %s]",
		strings.Join(conditions, " OR "),
		req.From.UTC().Format(queryDayLayout),
		req.To.UTC().Format(queryDayLayout),
	)

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	query := url.Values{}
	query.Set("search_query", search)
	query.Set("sortBy", "lastUpdatedDate")
	query.Set("sortOrder", "descending")
	query.Set("max_results", strconv.Itoa(maxResults))
	return query.Encode()
}

func entryToPaper(entry atomEntry) (domain.Paper, bool) {
	id := strings.TrimSpace(entry.ID)
	if idx := strings.LastIndex(id, "/abs/"); idx >= 0 {
		id = id[idx+len("/abs/"):]
	}
	if id == "" {
		return domain.Paper{}, false
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}

	paper := domain.Paper{
		ExternalID:  id,
		Title:       collapseSpace(entry.Title),
		Abstract:    collapseSpace(entry.Summary),
		Authors:     authors,
		Categories:  categories,
		PublishedAt: parseAtomTime(entry.Published),
		UpdatedAt:   parseAtomTime(entry.Updated),
		PDFURL:      "http://arxiv.org/pdf/" + id,
		PageURL:     "http://arxiv.org/abs/" + id,
	}

	for _, link := range entry.Links {
		switch {
		case link.Title == "pdf" || link.Type == "application/pdf":
			paper.PDFURL = link.Href
		case link.Rel == "alternate":
			paper.PageURL = link.Href
		}
	}
	return paper, true
}

func parseAtomTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// collapseSpace folds the hard line wraps arXiv puts into titles and abstracts.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
