package audio

import (
	"regexp"
	"strings"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
)

var (
	markdownLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	markdownSymbols  = regexp.MustCompile("[*_`#>~]+")
	repeatedSpace    = regexp.MustCompile(`[ \t]+`)
	repeatedNewlines = regexp.MustCompile(`\n{2,}`)
)

// CleanForSpeech strips markdown and flashcard blocks so only readable prose is spoken.
func CleanForSpeech(text string) string {
	text, _ = model.ExtractFlashcards(text)
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownSymbols.ReplaceAllString(text, "")
	text = repeatedSpace.ReplaceAllString(text, " ")
	text = repeatedNewlines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
