package measure

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// CellState is the state of one progress cell.
type CellState int

const (
	CellEmpty CellState = iota
	CellStarted
	CellFinished
)

// Progress receives transfer progress from the driver. Update may be called
// from many goroutines at once.
type Progress interface {
	Update(slot, total int, state CellState)
	Reset()
}

// ProgressLine renders one cell per transfer slot on a single terminal line.
//
// ProgressLine is safe for concurrent use. All cells live in one buffer
// guarded by one mutex; each Update changes one cell and redraws the line.
type ProgressLine struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	cells []CellState

	glyphs [3]string
}

// NewProgressLine creates a progress line writing to out.
//
// When out is a terminal the line is capped at the terminal width and
// drawn with coloured cells; otherwise plain characters are used.
func NewProgressLine(out io.Writer) *ProgressLine {
	p := &ProgressLine{out: out}

	colored := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 2 {
			p.width = w - 2
		}
		colored = !color.NoColor
	}

	if colored {
		p.glyphs = [3]string{
			color.New(color.BgRed).Sprint(" "),
			color.New(color.BgYellow).Sprint(" "),
			color.New(color.BgGreen).Sprint(" "),
		}
	} else {
		p.glyphs = [3]string{".", ">", "#"}
	}
	return p
}

// Update marks cell slot of total. Slots outside [0, total) are ignored.
// The first Update after Reset sizes the line.
func (p *ProgressLine) Update(slot, total int, state CellState) {
	if total <= 0 || slot < 0 || slot >= total {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	size := total
	if p.width > 0 && size > p.width {
		size = p.width
	}
	if len(p.cells) != size {
		p.cells = make([]CellState, size)
	}

	idx := slot * size / total
	if state > p.cells[idx] || state == CellEmpty {
		p.cells[idx] = state
	}
	p.render()
}

// Reset ends the current line and clears all cells.
func (p *ProgressLine) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.cells) > 0 {
		io.WriteString(p.out, "\n")
	}
	p.cells = nil
}

// String returns the current line without control characters.
func (p *ProgressLine) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line()
}

func (p *ProgressLine) line() string {
	var b strings.Builder
	for _, c := range p.cells {
		b.WriteString(p.glyphs[c])
	}
	return b.String()
}

// render must be called with mu held.
func (p *ProgressLine) render() {
	io.WriteString(p.out, "\r"+p.line())
}

// nopProgress discards updates.
type nopProgress struct{}

func (nopProgress) Update(int, int, CellState) {}
func (nopProgress) Reset()                     {}
