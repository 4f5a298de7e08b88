package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/scanner"
)

const (
	// ArxivListName registers the listing-page strategy.
	ArxivListName = "arxiv-list"

	arxivBaseURL = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivListScanner crawls category listing pages and keeps entries dated inside the window.
type ArxivListScanner struct {
	client   *http.Client
	baseURL  string
	pageSize int
	now      func() time.Time
}

// NewArxivListScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivListScanner(client *http.Client, baseURL string) *ArxivListScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = arxivBaseURL
	}
	return &ArxivListScanner{
		client:   client,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		pageSize: 200,
		now:      time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (a *ArxivListScanner) Name() string {
	return ArxivListName
}

// Scan walks each category's pastweek listing until entries fall before the window.
func (a *ArxivListScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("arxiv list: no categories requested")
	}

	results := make([]domain.Paper, 0)
	seen := map[string]int{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(a.listURL(cat), skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}

			pagePapers, shouldContinue := a.extractPapers(doc, req, cat)
			for _, paper := range pagePapers {
				if idx, ok := seen[paper.ExternalID]; ok {
					results[idx].Categories = appendUnique(results[idx].Categories, cat)
					continue
				}
				seen[paper.ExternalID] = len(results)
				results = append(results, paper)
			}

			if !shouldContinue || (req.MaxResults > 0 && len(results) >= req.MaxResults) {
				break
			}
			skip += a.pageSize
		}
	}

	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	return results, nil
}

func (a *ArxivListScanner) listURL(category string) string {
	return fmt.Sprintf("%s/list/%s/pastweek", a.baseURL, url.PathEscape(category))
}

func (a *ArxivListScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "PaperFeed/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (a *ArxivListScanner) extractPapers(doc *goquery.Document, req scanner.Request, category string) ([]domain.Paper, bool) {
	var (
		collected    []domain.Paper
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		paper, ok := a.parseEntry(dt, dd, category)
		if !ok {
			return true
		}

		if req.Contains(paper.PublishedAt) {
			collected = append(collected, paper)
		}
		if paper.PublishedAt.Before(req.From) && !req.Contains(paper.PublishedAt) {
			continueScan = false
			return false
		}
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}
	return collected, continueScan
}

func (a *ArxivListScanner) parseEntry(dt, dd *goquery.Selection, category string) (domain.Paper, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	id = strings.TrimSpace(strings.TrimPrefix(id, "arXiv:"))
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if id == "" {
		return domain.Paper{}, false
	}

	if !strings.HasPrefix(href, "http") {
		href = a.baseURL + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := a.now().UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	return domain.Paper{
		ExternalID:  id,
		Title:       collapseSpace(title),
		Abstract:    collapseSpace(abstract),
		Authors:     authors,
		Categories:  []string{category},
		PublishedAt: publishedAt,
		UpdatedAt:   publishedAt,
		PDFURL:      a.baseURL + "/pdf/" + id,
		PageURL:     href,
	}, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
