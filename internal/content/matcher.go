package content

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Factory builds content from matched text.
type Factory func(text string) Content

// Matcher classifies a delimited span of text. IncompleteContentFactory is
// optional; without it the matcher only produces complete matches.
type Matcher struct {
	Start                    *regexp2.Regexp
	End                      *regexp2.Regexp
	ContentFactory           Factory
	IncompleteContentFactory Factory
}

// Match is the span a matcher claimed. Start and End are rune offsets; End is
// exclusive.
type Match struct {
	Matcher  *Matcher
	Start    int
	End      int
	Complete bool
}

// FindFirstMatch returns the earliest complete match of any matcher. When
// no matcher completes, the earliest incomplete match of a matcher with an
// incomplete factory is returned.
func FindFirstMatch(matchers []*Matcher, text string) (Match, bool) {
	return findFirstMatch(matchers, []rune(text))
}

func findFirstMatch(matchers []*Matcher, runes []rune) (Match, bool) {
	var complete, incomplete *Match

	for _, m := range matchers {
		sm, err := m.Start.FindRunesMatch(runes)
		if err != nil || sm == nil {
			continue
		}
		afterStart := sm.Index + sm.Length

		var em *regexp2.Match
		if rest := runes[afterStart:]; len(rest) > 0 {
			em, err = m.End.FindRunesMatch(rest)
			if err != nil {
				em = nil
			}
		}

		if em == nil {
			if m.IncompleteContentFactory == nil {
				continue
			}
			if incomplete == nil || sm.Index < incomplete.Start {
				incomplete = &Match{Matcher: m, Start: sm.Index, End: len(runes)}
			}
			continue
		}

		if complete == nil || sm.Index < complete.Start {
			complete = &Match{
				Matcher:  m,
				Start:    sm.Index,
				End:      afterStart + em.Index + em.Length,
				Complete: true,
			}
		}
	}

	switch {
	case complete != nil:
		return *complete, true
	case incomplete != nil:
		return *incomplete, true
	}
	return Match{}, false
}

// ParseContents splits text into content using matchers. Unclaimed non-blank
// text becomes defaultFactory content.
func ParseContents(text string, matchers []*Matcher, defaultFactory Factory) []Content {
	var out []Content
	runes := []rune(text)

	for len(runes) > 0 {
		m, ok := findFirstMatch(matchers, runes)
		if !ok || m.End == 0 {
			break
		}

		if pre := string(runes[:m.Start]); strings.TrimSpace(pre) != "" {
			out = append(out, defaultFactory(pre))
		}

		matched := string(runes[m.Start:m.End])
		switch {
		case m.Complete:
			out = append(out, m.Matcher.ContentFactory(matched))
		case m.Matcher.IncompleteContentFactory != nil:
			out = append(out, m.Matcher.IncompleteContentFactory(matched))
		default:
			out = append(out, defaultFactory(matched))
		}

		runes = runes[m.End:]
	}

	if rest := string(runes); strings.TrimSpace(rest) != "" {
		out = append(out, defaultFactory(rest))
	}
	return out
}

// DefaultFactory wraps unclaimed text as markdown.
func DefaultFactory(text string) Content {
	return &MarkdownContent{Content: text}
}
