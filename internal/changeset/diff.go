package changeset

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff summarizes the textual difference between an element's original and
// target content.
type Diff struct {
	Patch     string
	Additions int
	Deletions int
}

func buildDiff(label, before, after string) Diff {
	if before == after {
		return Diff{}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var d Diff
	for _, part := range diffs {
		switch part.Type {
		case diffmatchpatch.DiffInsert:
			d.Additions += countLines(part.Text)
		case diffmatchpatch.DiffDelete:
			d.Deletions += countLines(part.Text)
		}
	}

	patchText := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patchText == "" {
		return d
	}

	var sb strings.Builder
	if label != "" {
		fmt.Fprintf(&sb, "--- %s\n+++ %s\n", label, label)
	}
	sb.WriteString(patchText)
	d.Patch = sb.String()
	return d
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
