package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// inlineTags do not break words when they open or close.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true, "i": true,
	"mark": true, "s": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "u": true,
}

// PlainText extracts the visible text of an HTML fragment with whitespace
// collapsed. Script and style bodies are dropped.
func PlainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				switch tt {
				case html.StartTagToken:
					skip++
				case html.EndTagToken:
					if skip > 0 {
						skip--
					}
				}
			}
			if !inlineTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

// WordCount counts words in plain text. Runs of letters and digits count as
// one word; each CJK ideograph or kana counts on its own.
func WordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana):
			count++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			if !inWord {
				count++
				inWord = true
			}
		case inWord && (r == '\'' || r == '’' || r == '-'):
			// joins contractions and hyphenated words
		default:
			inWord = false
		}
	}
	return count
}

// Excerpt returns at most limit runes of the plain text of content, cut at a
// word boundary when one is close enough.
func Excerpt(content string, limit int) string {
	text := PlainText(content)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)[:limit]
	cut := len(runes)
	for i := len(runes) - 1; i > limit*3/5; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}
