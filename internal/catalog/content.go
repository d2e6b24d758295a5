package catalog

import (
	"html/template"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ContentFilter transforms an item body before display.
type ContentFilter func(string) string

// DefaultContentFilters is the pipeline applied to item bodies.
var DefaultContentFilters = []ContentFilter{strings.TrimSpace, Autop}

var (
	blockTag  = regexp.MustCompile(`(?i)<(p|div|ul|ol|table|h[1-6]|blockquote|pre|figure)[\s>]`)
	paraBreak = regexp.MustCompile(`\n\s*\n`)
)

// Autop wraps plain-text paragraphs in <p> elements and turns single line
// breaks into <br>. Bodies that already contain block markup are left alone.
func Autop(s string) string {
	if s == "" || blockTag.MatchString(s) {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	for _, para := range paraBreak.Split(s, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(para, "\n", "<br>\n"))
		b.WriteString("</p>\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// StripTags returns the text content of an HTML fragment with whitespace
// collapsed. Script and style contents are dropped.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// TrimWords keeps the first n words of text and appends more when anything
// was cut.
func TrimWords(text string, n int, more string) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + more
}

func (s *Service) renderContent(body string) template.HTML {
	filters := s.ContentFilters
	if filters == nil {
		filters = DefaultContentFilters
	}
	for _, f := range filters {
		body = f(body)
	}
	return template.HTML(body)
}
