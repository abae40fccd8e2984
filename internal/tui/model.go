package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"pdfqa/internal/domain"
)

// SessionPort is the TUI-facing subset of the session.
type SessionPort interface {
	LoadDocument(ctx context.Context, name string, data []byte) (domain.DocumentStats, error)
	Ask(ctx context.Context, query string) (domain.Answer, error)
}

type focus int

const (
	focusPath focus = iota
	focusQuery
)

type loadedMsg struct {
	stats domain.DocumentStats
	err   error
}

type answeredMsg struct {
	answer domain.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	session  SessionPort
	readFile func(string) ([]byte, error)

	pathInput  textinput.Model
	queryInput textinput.Model
	focus      focus
	spinner    spinner.Model
	viewport   viewport.Model

	stats   *domain.DocumentStats
	answer  domain.Answer
	cursor  int
	status  string
	busy    bool
	ready   bool
	initial string
}

// New creates a new TUI model. A non-empty initialPath is loaded on start.
func New(ctx context.Context, session SessionPort, initialPath string) Model {
	pi := textinput.New()
	pi.Prompt = "PDF> "
	pi.Placeholder = "path/to/document.pdf"
	pi.CharLimit = 0
	pi.SetValue(initialPath)
	pi.Focus()

	qi := textinput.New()
	qi.Prompt = "Q> "
	qi.Placeholder = "Enter your question"
	qi.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	m := Model{
		ctx:        ctx,
		session:    session,
		readFile:   os.ReadFile,
		pathInput:  pi,
		queryInput: qi,
		spinner:    sp,
		viewport:   viewport.New(0, 0),
		status:     "Upload a PDF file: type its path and press Enter.",
		initial:    strings.TrimSpace(initialPath),
	}
	if m.initial != "" {
		m.busy = true
		m.status = "Indexing " + filepath.Base(m.initial) + "..."
	}
	return m
}

// Init starts the cursor blink and loads the initial document, if any.
func (m Model) Init() tea.Cmd {
	if m.initial == "" {
		return textinput.Blink
	}
	path := m.initial
	if err := validatePath(path); err != nil {
		return func() tea.Msg { return loadedMsg{err: err} }
	}
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadCmd(path))
}

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := bodyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 2*(1+ih) + 1 // header, two inputs, status
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.stats = nil
			m.answer = domain.Answer{}
			m.status = describeError(msg.err)
			m.refresh()
			return m, nil
		}
		stats := msg.stats
		m.stats = &stats
		m.answer = domain.Answer{}
		m.cursor = 0
		m.status = fmt.Sprintf("Loaded %s. Ask a question.", stats.Name)
		if stats.Cached {
			m.status = fmt.Sprintf("Loaded %s from cache. Ask a question.", stats.Name)
		}
		m.setFocus(focusQuery)
		m.refresh()
		return m, nil

	case answeredMsg:
		m.busy = false
		m.answer = msg.answer
		m.cursor = 0
		if msg.err != nil {
			m.status = describeError(msg.err)
		} else {
			m.status = fmt.Sprintf("Answered from %d chunks.", len(msg.answer.Sources))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab":
			if m.focus == focusPath {
				m.setFocus(focusQuery)
			} else {
				m.setFocus(focusPath)
			}
			return m, nil
		case "enter":
			return m.submit()
		case "down":
			if n := len(m.answer.Sources); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
				return m, nil
			}
		case "up":
			if n := len(m.answer.Sources); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.focus == focusPath {
		m.pathInput, cmd = m.pathInput.Update(msg)
	} else {
		m.queryInput, cmd = m.queryInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.focus == focusPath {
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		if err := validatePath(path); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.busy = true
		m.status = "Indexing " + filepath.Base(path) + "..."
		return m, tea.Batch(m.spinner.Tick, m.loadCmd(path))
	}

	q := strings.TrimSpace(m.queryInput.Value())
	if q == "" {
		return m, nil
	}
	if m.stats == nil {
		m.status = describeError(domain.ErrNoDocument)
		return m, nil
	}
	m.busy = true
	m.status = "Enhancing your query and getting the answer..."
	return m, tea.Batch(m.spinner.Tick, m.askCmd(q))
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusPath {
		m.queryInput.Blur()
		m.pathInput.Focus()
		return
	}
	m.pathInput.Blur()
	m.queryInput.Focus()
}

func (m Model) loadCmd(path string) tea.Cmd {
	ctx, session, readFile := m.ctx, m.session, m.readFile
	return func() tea.Msg {
		data, err := readFile(path)
		if err != nil {
			return loadedMsg{err: err}
		}
		stats, err := session.LoadDocument(ctx, filepath.Base(path), data)
		return loadedMsg{stats: stats, err: err}
	}
}

func (m Model) askCmd(query string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		ans, err := session.Ask(ctx, query)
		return answeredMsg{answer: ans, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderBody())
}

func validatePath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("only .pdf files are supported: %s", filepath.Base(path))
	}
	return nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoDocument):
		return "Load a PDF first."
	case errors.Is(err, domain.ErrDocumentParse):
		return "Could not read the PDF: " + err.Error()
	case errors.Is(err, domain.ErrIndexBuild):
		return "Indexing failed: " + err.Error()
	case errors.Is(err, domain.ErrQueryRewrite):
		return "Query rewrite failed: " + err.Error()
	case errors.Is(err, domain.ErrAnswerGeneration):
		return "Answer generation failed: " + err.Error()
	}
	return "Error: " + err.Error()
}
