// Package autocomplete completes "@Domain.attribute" references inside
// Gherkin step text.
package autocomplete

import (
	"regexp"
	"strings"

	"github.com/karthickst/agenticosv2.0/internal/domain"
)

// MaxSuggestions caps the number of suggestions returned by Suggest.
const MaxSuggestions = 8

type Suggestion struct {
	Ref    string               `json:"ref"`
	Domain string               `json:"domain"`
	Attr   string               `json:"attr"`
	Type   domain.AttributeType `json:"type"`
}

// token returns the text between the last '@' before cursor and the cursor.
// cursor counts runes and is clamped to the text.
func token(text string, cursor int) (before []rune, at int, tok string, ok bool) {
	runes := []rune(text)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}
	before = runes[:cursor]
	at = -1
	for i := len(before) - 1; i >= 0; i-- {
		if before[i] == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return before, -1, "", false
	}
	tok = string(before[at+1:])
	return before, at, tok, !strings.Contains(tok, " ")
}

// Suggest lists Domain.attribute references whose text contains the token
// being typed at cursor, case-insensitively, in domain then attribute order.
// It returns nil when the cursor is not inside an "@" token.
func Suggest(domains []*domain.Domain, text string, cursor int) []Suggestion {
	_, _, tok, ok := token(text, cursor)
	if !ok {
		return nil
	}
	needle := strings.ToLower(tok)

	out := []Suggestion{}
	for _, d := range domains {
		for _, a := range d.Attributes {
			ref := d.Name + "." + a.Name
			if !strings.Contains(strings.ToLower(ref), needle) {
				continue
			}
			out = append(out, Suggestion{Ref: ref, Domain: d.Name, Attr: a.Name, Type: a.Type})
			if len(out) == MaxSuggestions {
				return out
			}
		}
	}
	return out
}

// Apply replaces the token at cursor with "@ref " and returns the new text
// and the cursor position after the inserted reference. Text without an '@'
// before the cursor is returned unchanged.
func Apply(text string, cursor int, ref string) (string, int) {
	before, at, _, _ := token(text, cursor)
	if at < 0 {
		return text, len(before)
	}
	after := []rune(text)[len(before):]
	head := string(before[:at]) + "@" + ref + " "
	return head + string(after), len([]rune(head))
}

var refPattern = regexp.MustCompile(`@[\w.]+`)

// References returns every "@Name.attr" token in text, without the '@', in
// order of appearance.
func References(text string) []string {
	matches := refPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimPrefix(m, "@"))
	}
	return out
}
