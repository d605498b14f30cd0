package builder

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 2

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

func diffLines(before, after string) []diffLine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var lines []diffLine
	for _, d := range diffs {
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			lines = append(lines, diffLine{op: d.Type, text: strings.TrimSuffix(l, "\n")})
		}
	}
	return lines
}

// WriteDiff writes a line diff from before to after with diffContext lines of
// context around each change. It reports whether anything changed.
func WriteDiff(w io.Writer, name, before, after string) (bool, error) {
	lines := diffLines(before, after)

	// keep[i] marks equal lines close enough to a change to be shown
	keep := make([]bool, len(lines))
	changed := false
	for i, l := range lines {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		changed = true
		for j := max(0, i-diffContext); j <= min(len(lines)-1, i+diffContext); j++ {
			keep[j] = true
		}
	}
	if !changed {
		return false, nil
	}

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", red("--- "+name), green("+++ "+name+" (generated)"))
	skipping := false
	for i, l := range lines {
		switch {
		case l.op == diffmatchpatch.DiffDelete:
			sb.WriteString(red("-"+l.text) + "\n")
		case l.op == diffmatchpatch.DiffInsert:
			sb.WriteString(green("+"+l.text) + "\n")
		case keep[i]:
			sb.WriteString(" " + l.text + "\n")
		default:
			if !skipping {
				sb.WriteString(cyan("...") + "\n")
			}
			skipping = true
			continue
		}
		skipping = false
	}
	_, err := io.WriteString(w, sb.String())
	return true, err
}
