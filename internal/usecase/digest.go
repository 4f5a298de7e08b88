package usecase

import (
	"fmt"
	"strings"

	"PaperFeed/internal/domain"
)

// buildDigestMessage renders recommended papers as a plain-text notification.
func buildDigestMessage(papers []domain.Paper) string {
	if len(papers) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d new recommendation(s)\n\n", len(papers))
	for _, paper := range papers {
		title := paper.Title
		if paper.TranslatedTitle != "" {
			title = fmt.Sprintf("%s (%s)", paper.Title, paper.TranslatedTitle)
		}
		fmt.Fprintf(&b, "- %s\n%s\n%s\n\n", title, paper.Reason, paper.PageURL)
	}
	return strings.TrimRight(b.String(), "\n")
}
