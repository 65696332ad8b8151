package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/question"
)

const (
	sentinel   = "<!-- intervbot-report-version: 1 -->"
	dataPrefix = "<!-- intervbot-data: "
	dataSuffix = " -->"
)

// Renderer serializes a Report.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	// Ext is the file extension without the dot.
	Ext() string
}

// RendererFor maps a format name to its Renderer.
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want markdown or json)", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (*JSONRenderer) Ext() string { return "json" }

func (*JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// MarkdownRenderer renders a Report as readable Markdown with the full
// report embedded as base64 JSON so it can be parsed back losslessly.
type MarkdownRenderer struct{}

func (*MarkdownRenderer) Ext() string { return "md" }

func (*MarkdownRenderer) Render(r *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder
	sb.WriteString(sentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	res := r.Results
	heading := "Interview Results"
	if res.Kind == engine.Quiz {
		heading = "Quiz Results"
	}
	fmt.Fprintf(&sb, "# %s: %s\n\n", heading, res.Title())

	WriteSummary(&sb, r)
	if note := res.Note(); note != "" {
		fmt.Fprintf(&sb, "> ⏰ %s\n\n", note)
	}

	sb.WriteString("## Questions\n\n")
	if len(res.Questions) == 0 {
		sb.WriteString("_No questions._\n\n")
	}
	answers := make(map[int]engine.AnswerRecord, len(res.Answers))
	for _, a := range res.Answers {
		answers[a.Index] = a
	}
	for i, q := range res.Questions {
		a, answered := answers[i]
		writeQuestion(&sb, i, q, a, answered, res.Kind)
	}
	return []byte(sb.String()), nil
}

// WriteSummary writes the summary section. The viewer reuses it.
func WriteSummary(sb *strings.Builder, r *Report) {
	s := r.Summary()
	sb.WriteString("## Summary\n\n")
	if r.Participant != "" {
		fmt.Fprintf(sb, "- Participant: %s\n", r.Participant)
	}
	fmt.Fprintf(sb, "- Total Questions: %d\n", s.TotalQuestions)
	fmt.Fprintf(sb, "- Attempted: %d\n", s.Attempted)
	if r.Results.Kind == engine.Quiz {
		fmt.Fprintf(sb, "- Right: %d\n", s.Right)
		fmt.Fprintf(sb, "- Incorrect: %d\n", s.Incorrect)
		fmt.Fprintf(sb, "- Total Result %%: %d%%\n", s.Percent)
	} else {
		fmt.Fprintf(sb, "- Overall Score: %d\n", s.Percent)
	}
	fmt.Fprintf(sb, "- Role: %s\n", s.Role)
	fmt.Fprintf(sb, "- Difficulty: %s\n", s.Difficulty)
	if s.Duration > 0 {
		fmt.Fprintf(sb, "- Duration: %s\n", s.Duration)
	}
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(sb, "- Date: %s\n", r.GeneratedAt.Format("2006-01-02 03:04 PM"))
	}
	sb.WriteString("\n")
}

func writeQuestion(sb *strings.Builder, i int, q question.Question, a engine.AnswerRecord, answered bool, kind engine.Kind) {
	fmt.Fprintf(sb, "### Q%d.\n\n", i+1)
	for _, seg := range question.SplitCode(q.Text) {
		if seg.Code {
			fmt.Fprintf(sb, "```%s\n%s\n```\n\n", seg.Language, seg.Text)
		} else {
			fmt.Fprintf(sb, "%s\n\n", seg.Text)
		}
	}

	if !answered {
		sb.WriteString("_Not answered._\n\n")
		return
	}

	if kind == engine.Quiz {
		for _, opt := range q.Options {
			mark := " "
			if opt == a.Answer && !a.Unanswered {
				mark = "x"
			}
			fmt.Fprintf(sb, "- [%s] %s\n", mark, opt)
		}
		sb.WriteString("\n")
		if a.Unanswered {
			fmt.Fprintf(sb, "- Your answer: %s\n", engine.TimedOutAnswer)
		} else {
			fmt.Fprintf(sb, "- Your answer: %s\n", a.Answer)
		}
		fmt.Fprintf(sb, "- Correct answer: %s\n", q.CorrectAnswer)
		if a.Correct {
			sb.WriteString("- Result: ✅ Right\n\n")
		} else {
			sb.WriteString("- Result: ❌ Incorrect\n\n")
		}
		return
	}

	fmt.Fprintf(sb, "**Your answer:** %s\n\n", a.Answer)
	fmt.Fprintf(sb, "- Score: %s\n", a.Score)
	if a.Tone != "" {
		fmt.Fprintf(sb, "- Tone: %s\n", a.Tone)
	}
	if a.Feedback != "" {
		fmt.Fprintf(sb, "- Feedback: %s\n", a.Feedback)
	}
	if a.ExpectedAnswer != "" {
		fmt.Fprintf(sb, "- Expected answer: %s\n", a.ExpectedAnswer)
	}
	sb.WriteString("\n")
}
