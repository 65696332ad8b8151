package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/report"
)

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func row(sb *strings.Builder, label, value string) {
	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", label)) + "  " + value + "\n")
}

// renderQuestionText lays out prose and fenced code blocks.
func renderQuestionText(text string, width int) string {
	if width < 20 {
		width = 20
	}
	var parts []string
	for _, seg := range question.SplitCode(text) {
		if seg.Code {
			parts = append(parts, codeStyle.Render(seg.Text))
			continue
		}
		parts = append(parts, lipgloss.NewStyle().Width(width).Render(seg.Text))
	}
	return strings.Join(parts, "\n\n")
}

func renderSummary(r *report.Report) string {
	s := r.Summary()
	res := r.Results
	var sb strings.Builder
	sb.WriteString(heading(res.Title()))
	if r.Participant != "" {
		row(&sb, "Participant:", r.Participant)
	}
	row(&sb, "Total Questions:", fmt.Sprintf("%d", s.TotalQuestions))
	row(&sb, "Attempted:", fmt.Sprintf("%d", s.Attempted))
	if res.Kind == engine.Quiz {
		row(&sb, "Right:", rightStyle.Render(fmt.Sprintf("%d", s.Right)))
		row(&sb, "Incorrect:", wrongStyle.Render(fmt.Sprintf("%d", s.Incorrect)))
		row(&sb, "Total Result %:", fmt.Sprintf("%d%%", s.Percent))
	} else {
		row(&sb, "Overall Score:", fmt.Sprintf("%d", s.Percent))
	}
	row(&sb, "Role:", s.Role)
	row(&sb, "Difficulty:", s.Difficulty)
	if s.Duration > 0 {
		row(&sb, "Duration:", s.Duration.String())
	}
	if note := res.Note(); note != "" {
		sb.WriteString("\n  " + warningStyle.Render("⏰ "+note) + "\n")
	}
	return sb.String()
}

func renderAnswers(res engine.Results, width int) string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Questions (%d)", len(res.Questions))))
	if len(res.Answers) == 0 {
		sb.WriteString(dimStyle.Render("  (none answered)") + "\n")
		return sb.String()
	}
	for _, a := range res.Answers {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  Q%d.", a.Index+1)) + "\n")
		sb.WriteString(indent(renderQuestionText(a.Question.Text, width-6), "    ") + "\n\n")
		if res.Kind == engine.Quiz {
			mark := wrongStyle.Render("❌ Incorrect")
			if a.Correct {
				mark = rightStyle.Render("✅ Right")
			}
			sb.WriteString("    Your answer:    " + a.Answer + "\n")
			sb.WriteString("    Correct answer: " + a.Question.CorrectAnswer + "\n")
			sb.WriteString("    " + mark + "\n\n")
			continue
		}
		sb.WriteString("    Your answer: " + a.Answer + "\n")
		sb.WriteString("    Score: " + a.Score.String())
		if a.Tone != "" {
			sb.WriteString("   Tone: " + a.Tone)
		}
		sb.WriteString("\n")
		if a.Feedback != "" {
			sb.WriteString(dimStyle.Render("    Feedback: "+a.Feedback) + "\n")
		}
		if a.ExpectedAnswer != "" {
			sb.WriteString(dimStyle.Render("    Expected: "+a.ExpectedAnswer) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
