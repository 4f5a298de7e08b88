package evaluator

import (
	"fmt"
	"strings"

	"PaperFeed/internal/domain"
)

func scorePrompt(paper domain.Paper, profile, favoriteSummary string) string {
	var b strings.Builder
	b.WriteString("You are screening new research papers for a reader.\n\n")
	fmt.Fprintf(&b, "Reader interests:\n%s\n\n", profile)
	if favoriteSummary != "" {
		fmt.Fprintf(&b, "Summary of papers the reader has favorited:\n%s\n\n", favoriteSummary)
	}
	fmt.Fprintf(&b, "Paper title: %s\n", paper.Title)
	fmt.Fprintf(&b, "Paper abstract: %s\n", paper.Abstract)
	fmt.Fprintf(&b, "Paper categories: %s\n\n", strings.Join(paper.Categories, ", "))
	b.WriteString("Decide whether this paper is worth recommending to the reader.\n")
	b.WriteString("Reply with JSON only, in the form:\n")
	b.WriteString(`{"is_recommended": true or false, "reason": "a short reason, at most 50 characters"}`)
	return b.String()
}

func translatePrompt(title, abstract, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following paper title and abstract into %s.\n", language)
	b.WriteString("Keep technical terms accurate and keep the meaning unchanged.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Abstract: %s\n\n", abstract)
	b.WriteString("Reply with JSON only, in the form:\n")
	b.WriteString(`{"translated_title": "...", "translated_abstract": "..."}`)
	return b.String()
}

func refinePrompt(raw string) string {
	var b strings.Builder
	b.WriteString("A reader described their research interests as follows:\n\n")
	b.WriteString(raw)
	b.WriteString("\n\nRewrite this as a clear, structured interest profile of 100 to 200 words. ")
	b.WriteString("Name the core topics, the methods they care about and what they want to avoid. ")
	b.WriteString("Reply with the profile text only.")
	return b.String()
}

func summaryPrompt(batch []domain.Paper, prior string) string {
	var b strings.Builder
	if prior == "" {
		b.WriteString("The reader has favorited the papers below. ")
		b.WriteString("Write a summary of 150 to 250 words describing the research directions and preferences they reveal.\n\n")
	} else {
		fmt.Fprintf(&b, "Current summary of the reader's favorite papers:\n%s\n\n", prior)
		b.WriteString("The reader has since favorited the papers below. ")
		b.WriteString("Update the summary, keeping it between 150 and 250 words. ")
		b.WriteString("Preserve the themes already established. ")
		b.WriteString("Extend them only if the new papers show a genuinely new research direction.\n\n")
	}
	for i, p := range batch {
		fmt.Fprintf(&b, "Paper %d: %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "Abstract: %s\n\n", truncateAbstract(p.Abstract))
	}
	b.WriteString("Reply with the summary text only.")
	return b.String()
}

func truncateAbstract(abstract string) string {
	runes := []rune(abstract)
	if len(runes) <= summaryAbstractLimit {
		return abstract
	}
	return string(runes[:summaryAbstractLimit]) + "..."
}
