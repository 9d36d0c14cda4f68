package text

import (
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var (
	urlPattern     = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// DefaultEmoticons are kept as tokens because they carry sentiment on their own.
var DefaultEmoticons = []string{
	":-L", ":L", "<3", "8)", "8-)", "8-}", "8]", "8-]", "8-|", "8(", "8-(",
	"8-[", "8-{", "-.-", "xx", "</3", ":-{", ": )", ": (", ";]", ":{", "={",
	":-}", ":}", "=}", ":)", ";)", ":/", "=/", ";/", "x(", "x)", ":D", "T_T",
	"O.o", "o.o", "o_O", "o.-", "O.-", "-.o", "-.O", "X_X", "x_x", "XD", "DX",
	":-$", ":|", "-_-", "D:", ":-)", "^_^", "=)", "=]", "=|", "=[", "=(", ":(",
	":-(", ":, (", ":'(", ":-]", ":-[", ":]", ":[", ">.>", "<.<",
}

// Tokenizer turns raw sample text into normalized tokens
type Tokenizer struct {
	stopwords map[string]struct{}
	emoticons []string // longest first so ":-)" wins over ":)"
}

// NewTokenizer creates a tokenizer with the given stopwords and emoticons.
// A nil emoticon list disables emoticon extraction.
func NewTokenizer(stopwords, emoticons []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}

	emo := make([]string, 0, len(emoticons))
	for _, e := range emoticons {
		if strings.TrimSpace(e) != "" {
			emo = append(emo, e)
		}
	}
	sort.SliceStable(emo, func(i, j int) bool { return len(emo[i]) > len(emo[j]) })

	return &Tokenizer{stopwords: stops, emoticons: emo}
}

// Tokenize sanitizes text and splits it into tokens. Duplicates are kept;
// emoticons come first in the order found, followed by words.
func (t *Tokenizer) Tokenize(text string) []string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")

	var tokens []string
	text, tokens = t.extractEmoticons(text)
	text = StripMarkup(text)

	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '\'' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// extractEmoticons pulls whitespace-delimited emoticons out of text,
// replacing them with spaces.
func (t *Tokenizer) extractEmoticons(text string) (string, []string) {
	var found []string
	for _, e := range t.emoticons {
		var b strings.Builder
		pos := 0
		for {
			i := strings.Index(text[pos:], e)
			if i < 0 {
				b.WriteString(text[pos:])
				break
			}
			start := pos + i
			end := start + len(e)
			if isBoundary(text, start-1) && isBoundary(text, end) {
				found = append(found, e)
				b.WriteString(text[pos:start])
				b.WriteByte(' ')
				pos = end
				continue
			}
			b.WriteString(text[pos : start+1])
			pos = start + 1
		}
		text = b.String()
	}
	return text, found
}

// isBoundary reports whether position i of s is outside the string or a space.
func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	return unicode.IsSpace(rune(s[i]))
}

// processToken applies cleaning and stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if len([]rune(word)) <= 1 {
		return ""
	}

	// Pure-numeric tokens carry no sentiment.
	if isNumericOnly(word) {
		return ""
	}

	if _, stop := t.stopwords[word]; stop {
		return ""
	}
	return word
}

// cleanToken trims hyphens and apostrophes and squeezes letters repeated more
// than twice ("sooooo" -> "soo").
func cleanToken(token string) string {
	token = strings.Trim(token, "-'")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	var b strings.Builder
	var prev rune
	run := 0
	for _, r := range token {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// StripMarkup returns the text content of an HTML fragment with entities
// decoded. Plain text passes through unchanged apart from entity decoding.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return s
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
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

func isRawTextTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
