package question

import (
	"regexp"
	"strings"
)

// Segment is a run of prose or a fenced code block inside a question or an
// expected answer.
type Segment struct {
	Text     string
	Code     bool
	Language string
}

var fenceRe = regexp.MustCompile("```(\\w+)?\\n([\\s\\S]*?)```")

// SplitCode breaks text into prose and fenced code segments, in order.
// Leading and trailing blank lines inside a code block are dropped.
func SplitCode(text string) []Segment {
	var segs []Segment
	last := 0
	for _, m := range fenceRe.FindAllStringSubmatchIndex(text, -1) {
		if prose := text[last:m[0]]; strings.TrimSpace(prose) != "" {
			segs = append(segs, Segment{Text: strings.Trim(prose, "\n")})
		}
		lang := ""
		if m[2] >= 0 {
			lang = text[m[2]:m[3]]
		}
		segs = append(segs, Segment{
			Text:     strings.Trim(text[m[4]:m[5]], "\n"),
			Code:     true,
			Language: lang,
		})
		last = m[1]
	}
	if rest := text[last:]; strings.TrimSpace(rest) != "" {
		segs = append(segs, Segment{Text: strings.Trim(rest, "\n")})
	}
	return segs
}
