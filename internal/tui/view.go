package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pdfqa/internal/textutil"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bodyBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activeBoxStyle = inputBoxStyle.BorderForeground(lipgloss.Color("12"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("PDF Q&A")
	path, query := inputBoxStyle, inputBoxStyle
	if m.focus == focusPath {
		path = activeBoxStyle
	} else {
		query = activeBoxStyle
	}
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return strings.Join([]string{
		header,
		path.Render(m.pathInput.View()),
		bodyBoxStyle.Render(m.viewport.View()),
		query.Render(m.queryInput.View()),
		status,
	}, "\n")
}

func (m Model) renderBody() string {
	if m.stats == nil {
		return mutedStyle.Render("No document loaded.")
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width-2))
	var b strings.Builder

	b.WriteString(labelStyle.Render("Document Preview"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total documents loaded: %d\n", m.stats.Segments)
	fmt.Fprintf(&b, "First document length: %d\n", m.stats.FirstSegmentLength)
	fmt.Fprintf(&b, "Total chunks created: %d\n", m.stats.Chunks)
	if m.stats.Preview != "" {
		b.WriteString(mutedStyle.Render(wrap.Render(m.stats.Preview)))
		b.WriteString("\n")
	}

	if m.answer.RewrittenQuery != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Rewritten Query: "))
		b.WriteString(wrap.Render(m.answer.RewrittenQuery))
		b.WriteString("\n")
	}
	if m.answer.Text != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Answer:"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(m.answer.Text))
		b.WriteString("\n")
	}
	if n := len(m.answer.Sources); n > 0 {
		r := m.answer.Sources[m.cursor]
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Source %d/%d  page %d  score=%.3f  (up/down to browse)",
			m.cursor+1, n, r.Chunk.Segment+1, r.Score)))
		b.WriteString("\n")
		b.WriteString(wrap.Render(highlightBestSentence(r.Chunk.Text, m.answer.RewrittenQuery)))
	}
	return b.String()
}

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	qTokens := textutil.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
