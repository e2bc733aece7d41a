package content

import (
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	codeFenceStart = regexp2.MustCompile("^```.*?$", regexp2.Multiline)
	codeFenceEnd   = regexp2.MustCompile("^```$", regexp2.Multiline)
	codeLanguage   = regexp2.MustCompile(`^`+"```"+`([\w+#.-]+)`, regexp2.None)
)

// CodeMatcher recognizes markdown code fences, with or without a language.
func CodeMatcher() *Matcher {
	return &Matcher{
		Start: codeFenceStart,
		End:   codeFenceEnd,
		ContentFactory: func(text string) Content {
			return parseCodeBlock(text, true)
		},
		IncompleteContentFactory: func(text string) Content {
			return parseCodeBlock(text, false)
		},
	}
}

// DefaultMatchers is the matcher set used for model responses.
func DefaultMatchers() []*Matcher {
	return []*Matcher{CodeMatcher()}
}

func parseCodeBlock(text string, complete bool) *CodeContent {
	code := &CodeContent{Incomplete: !complete}

	if m, err := codeLanguage.FindStringMatch(text); err == nil && m != nil {
		if g := m.GroupByNumber(1); g != nil {
			code.Language = g.String()
		}
	}

	body := ""
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		body = text[i+1:]
	}
	if complete {
		body = strings.TrimRight(body, " \t\r\n")
		body = strings.TrimSuffix(body, "```")
	}
	code.Code = strings.Trim(body, "\r\n")
	return code
}
