package tui

import "strings"

// Pager is a scrollable, pannable viewport over a block of text. It is
// command-agnostic: callers translate input into MoveBy deltas, and the
// key-binding table lives in the navigator. The origin is re-clamped on
// every move and resize, so content smaller than the viewport pins to 0.
type Pager struct {
	width, height int
	lines         []string
	maxLineWidth  int
	row, col      int
}

func NewPager() *Pager {
	return &Pager{}
}

// SetContent replaces the buffer and rewinds the origin.
func (p *Pager) SetContent(text string) {
	p.lines = strings.Split(strings.TrimRight(text, "\n"), "\n")
	p.maxLineWidth = 0
	for _, line := range p.lines {
		if w := len([]rune(line)); w > p.maxLineWidth {
			p.maxLineWidth = w
		}
	}
	p.row, p.col = 0, 0
}

// SetSize records the live viewport dimensions. The terminal can resize
// between redraws, so the origin is re-clamped here too.
func (p *Pager) SetSize(width, height int) {
	p.width, p.height = width, height
	p.clamp()
}

// Size returns the current viewport dimensions.
func (p *Pager) Size() (width, height int) {
	return p.width, p.height
}

// Origin returns the current viewport origin.
func (p *Pager) Origin() (row, col int) {
	return p.row, p.col
}

// MoveBy shifts the origin, clamping each axis independently to
// [0, extent-viewport].
func (p *Pager) MoveBy(deltaRows, deltaCols int) {
	p.row += deltaRows
	p.col += deltaCols
	p.clamp()
}

// HalfPage is the half-viewport scroll step.
func (p *Pager) HalfPage() int {
	return max(1, p.height/2)
}

// FullPage is the full-viewport scroll step.
func (p *Pager) FullPage() int {
	return max(1, p.height)
}

func (p *Pager) clamp() {
	maxRow := max(0, len(p.lines)-p.height)
	maxCol := max(0, p.maxLineWidth-p.width)
	p.row = min(max(0, p.row), maxRow)
	p.col = min(max(0, p.col), maxCol)
}

// View renders the visible slice of lines, each cut to the horizontal
// window. Pure function of state.
func (p *Pager) View() string {
	if p.width <= 0 || p.height <= 0 {
		return ""
	}
	end := min(len(p.lines), p.row+p.height)
	visible := make([]string, 0, p.height)
	for _, line := range p.lines[p.row:end] {
		runes := []rune(line)
		if p.col >= len(runes) {
			visible = append(visible, "")
			continue
		}
		right := min(len(runes), p.col+p.width)
		visible = append(visible, string(runes[p.col:right]))
	}
	return strings.Join(visible, "\n")
}
