package tui

import (
	"fmt"
	"io"
	"strings"

	glam "github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/patchstage/internal/core/stage"
	"github.com/asynkron/patchstage/pkg/patch"
)

const noteWrap = 100

// Printer renders workflow output as line-oriented terminal text. It
// implements stage.Reporter.
type Printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	glam     *glam.TermRenderer
	styled   bool

	section lipgloss.Style
	muted   lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	command lipgloss.Style
	status  map[stage.FileStatus]lipgloss.Style

	diffAdd    lipgloss.Style
	diffDel    lipgloss.Style
	diffHunk   lipgloss.Style
	diffHeader lipgloss.Style
}

var _ stage.Reporter = (*Printer)(nil)

// NewPrinter builds a Printer writing to w. With styled unset every escape
// sequence is suppressed and notes are printed verbatim.
func NewPrinter(w io.Writer, styled bool) *Printer {
	if w == nil {
		w = io.Discard
	}
	// Fixed profiles avoid terminal capability queries on w.
	profile := termenv.Ascii
	if styled {
		profile = termenv.TrueColor
	}
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	renderer.SetHasDarkBackground(true)

	p := &Printer{
		w:        w,
		renderer: renderer,
		styled:   styled,
	}
	p.section = renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	p.muted = renderer.NewStyle().Foreground(lipgloss.Color("244"))
	p.warn = renderer.NewStyle().Foreground(lipgloss.Color("214"))
	p.success = renderer.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	p.failure = renderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	p.command = renderer.NewStyle().Foreground(lipgloss.Color("252"))
	p.status = map[stage.FileStatus]lipgloss.Style{
		stage.StatusApplied:   renderer.NewStyle().Foreground(lipgloss.Color("42")),
		stage.StatusSkipped:   renderer.NewStyle().Foreground(lipgloss.Color("214")),
		stage.StatusUnchanged: renderer.NewStyle().Foreground(lipgloss.Color("244")),
		stage.StatusRejected:  renderer.NewStyle().Foreground(lipgloss.Color("9")),
	}
	// Diff lines keep their tabs.
	diff := renderer.NewStyle().TabWidth(lipgloss.NoTabConversion)
	p.diffAdd = diff.Foreground(lipgloss.Color("42"))
	p.diffDel = diff.Foreground(lipgloss.Color("9"))
	p.diffHunk = diff.Foreground(lipgloss.Color("33"))
	p.diffHeader = diff.Bold(true)

	if styled {
		if r, err := glam.NewTermRenderer(
			glam.WithStylePath("dark"), // fixed style to avoid OSC queries
			glam.WithWordWrap(noteWrap),
		); err == nil {
			p.glam = r
		}
	}
	return p
}

// Styled reports whether escape sequences are emitted.
func (p *Printer) Styled() bool {
	return p.styled
}

// Renderer exposes the lipgloss renderer so prompts share the same profile.
func (p *Printer) Renderer() *lipgloss.Renderer {
	return p.renderer
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *Printer) Section(title string) {
	p.println("")
	p.println(p.section.Render("== " + title))
}

func (p *Printer) Info(msg string) {
	p.println(msg)
}

func (p *Printer) Warn(msg string) {
	p.println(p.warn.Render("[warn] ") + msg)
}

func (p *Printer) Success(msg string) {
	p.println(p.success.Render("[ok] ") + msg)
}

func (p *Printer) Failure(msg string) {
	p.println(p.failure.Render("[fail] ") + msg)
}

func (p *Printer) File(status stage.FileStatus, path, detail string) {
	style, ok := p.status[status]
	if !ok {
		style = p.muted
	}
	line := "  " + style.Render(fmt.Sprintf("%-11s", "["+string(status)+"]")) + " " + path
	if detail != "" {
		line += p.muted.Render(" (" + detail + ")")
	}
	p.println(line)
}

// Note prints an instruction excerpt. Notes are free text, so the styled path
// renders them as a fenced block to keep their line breaks.
func (p *Printer) Note(title, body string, truncated bool) {
	p.println(p.section.Render("Instruction: " + title))
	if body == "" {
		p.println(p.muted.Render("  (empty)"))
	} else if rendered, ok := p.renderNote(body); ok {
		fmt.Fprint(p.w, rendered)
		if !strings.HasSuffix(rendered, "\n") {
			p.println("")
		}
	} else {
		for _, line := range strings.Split(body, "\n") {
			p.println("  " + line)
		}
	}
	if truncated {
		p.println(p.muted.Render("  ... (truncated)"))
	}
}

func (p *Printer) renderNote(body string) (string, bool) {
	if p.glam == nil {
		return "", false
	}
	rendered, err := p.glam.Render("```\n" + body + "\n```\n")
	if err != nil {
		return "", false
	}
	return rendered, true
}

func (p *Printer) Diff(path string, diff patch.Diff) {
	p.println(p.section.Render("Diff: " + path))
	for _, line := range diff.Lines {
		p.println(p.diffLine(line))
	}
	if diff.Truncated {
		p.println(p.muted.Render(fmt.Sprintf("... %d more line(s)", diff.Total-len(diff.Lines))))
	}
}

func (p *Printer) diffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return p.diffHeader.Render(line)
	case strings.HasPrefix(line, "@@"):
		return p.diffHunk.Render(line)
	case strings.HasPrefix(line, "+"):
		return p.diffAdd.Render(line)
	case strings.HasPrefix(line, "-"):
		return p.diffDel.Render(line)
	default:
		return line
	}
}

func (p *Printer) Commands(title string, commands []string) {
	p.println("")
	p.println(p.section.Render(title + ":"))
	for _, cmd := range commands {
		p.println("  " + p.command.Render("$ "+cmd))
	}
}
