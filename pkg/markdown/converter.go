package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphTag = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	headingTag   = regexp.MustCompile(`(?s)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	codeBlockTag = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	anyTag       = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

var telegramTags = map[string]struct{}{
	"b": {}, "i": {}, "u": {}, "s": {}, "code": {}, "pre": {}, "a": {},
}

// ToTelegramHTML converts an assistant reply written in markdown to the HTML subset
// Telegram accepts.
func ToTelegramHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = codeBlockTag.ReplaceAllString(html, "<pre>$1</pre>")
	html = headingTag.ReplaceAllString(html, "<b>$1</b>\n")
	html = paragraphTag.ReplaceAllString(html, "$1\n")

	html = strings.NewReplacer(
		"<strong>", "<b>", "</strong>", "</b>",
		"<em>", "<i>", "</em>", "</i>",
		"<del>", "<s>", "</del>", "</s>",
		"<li>", "• ", "</li>", "",
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	).Replace(html)

	html = anyTag.ReplaceAllStringFunc(
		html, func(match string) string {
			name := anyTag.FindStringSubmatch(match)[1]
			if _, ok := telegramTags[strings.ToLower(name)]; ok {
				return match
			}
			return ""
		},
	)

	html = blankLines.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
