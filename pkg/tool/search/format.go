package search

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/farmassist/pkg/model"
)

const (
	// DefaultTopN is the number of results rendered for the assistant
	DefaultTopN = 3

	// snippetLimit is counted in runes
	snippetLimit = 300
)

// Format renders the top n search results as a numbered list
func Format(results []model.SearchResult, n int) string {
	if n > len(results) {
		n = len(results)
	}
	if n <= 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d results for your query:\n\n", n)

	for i, r := range results[:n] {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		content := r.Content
		if content == "" {
			content = "No summary available"
		}

		fmt.Fprintf(&b, "%d. %s\n   - Summary: %s\n   - Link: %s\n\n", i+1, title, snippet(content), r.URL)
	}

	return b.String()
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLimit {
		return content
	}
	return string(runes[:snippetLimit]) + "..."
}
