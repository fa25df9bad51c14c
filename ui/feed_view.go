package ui

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"scrollfeed/manifest"
	"scrollfeed/stream"
)

const (
	gutterWidth      = 2
	keyScrollRows    = 3
	defaultWheelStep = 120.0
)

// FeedView draws a Surface: background slots in a gutter, foreground cards as boxes,
// and a status line on the last row.
type FeedView struct {
	*tview.Box
	surface *Surface

	// WheelPixels is the distance one mouse wheel notch reports.
	WheelPixels float64

	onWheel  func(px float64)
	onReset  func()
	onQuit   func()
	onResize func(heightPx float64)
	lastRows int
}

// NewFeedView creates a view over surface.
func NewFeedView(surface *Surface) *FeedView {
	v := &FeedView{
		Box:         tview.NewBox(),
		surface:     surface,
		WheelPixels: defaultWheelStep,
	}
	v.SetMouseCapture(v.captureMouse)
	v.SetInputCapture(v.captureKey)
	return v
}

// SetWheelFunc sets the callback receiving scroll input in pixels (positive = forward).
func (v *FeedView) SetWheelFunc(fn func(px float64)) *FeedView {
	v.onWheel = fn
	return v
}

// SetResetFunc sets the callback for the reset key.
func (v *FeedView) SetResetFunc(fn func()) *FeedView {
	v.onReset = fn
	return v
}

// SetQuitFunc sets the callback for the quit key.
func (v *FeedView) SetQuitFunc(fn func()) *FeedView {
	v.onQuit = fn
	return v
}

// SetResizeFunc sets the callback told the feed viewport height (px) whenever the
// drawable area changes.
func (v *FeedView) SetResizeFunc(fn func(heightPx float64)) *FeedView {
	v.onResize = fn
	return v
}

func (v *FeedView) wheel(px float64) {
	if v.onWheel != nil && px != 0 {
		v.onWheel(px)
	}
}

func (v *FeedView) captureMouse(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
	switch action {
	case tview.MouseScrollDown:
		v.wheel(v.WheelPixels)
		return action, nil
	case tview.MouseScrollUp:
		v.wheel(-v.WheelPixels)
		return action, nil
	}
	return action, event
}

func (v *FeedView) captureKey(event *tcell.EventKey) *tcell.EventKey {
	row := v.surface.RowPixels()
	page := float64(max(v.lastRows, 1)) * row

	switch event.Key() {
	case tcell.KeyDown:
		v.wheel(keyScrollRows * row)
		return nil
	case tcell.KeyUp:
		v.wheel(-keyScrollRows * row)
		return nil
	case tcell.KeyPgDn:
		v.wheel(page)
		return nil
	case tcell.KeyPgUp:
		v.wheel(-page)
		return nil
	}

	switch event.Rune() {
	case 'j':
		v.wheel(keyScrollRows * row)
		return nil
	case 'k':
		v.wheel(-keyScrollRows * row)
		return nil
	case ' ':
		v.wheel(page)
		return nil
	case 'r':
		if v.onReset != nil {
			v.onReset()
		}
		return nil
	case 'q':
		if v.onQuit != nil {
			v.onQuit()
		}
		return nil
	}
	return event
}

// Draw renders the current snapshot.
func (v *FeedView) Draw(screen tcell.Screen) {
	v.Box.DrawForSubclass(screen, v)
	x, y, width, height := v.GetInnerRect()
	if width <= gutterWidth || height <= 1 {
		return
	}

	feedRows := height - 1
	if feedRows != v.lastRows {
		v.lastRows = feedRows
		if v.onResize != nil {
			v.onResize(float64(feedRows) * v.surface.RowPixels())
		}
	}

	cards, status := v.surface.Snapshot()
	row := v.surface.RowPixels()
	for _, c := range cards {
		top := int(math.Floor(c.Y / row))
		switch c.Layer {
		case stream.Background:
			v.drawBackground(screen, x, y, feedRows, top, c)
		default:
			rows := max(int(math.Round(c.Height/row)), 1)
			v.drawCard(screen, x+gutterWidth, y, width-gutterWidth, feedRows, top, rows, c)
		}
	}

	drawText(screen, x, y+feedRows, width, formatStatus(status), tcell.StyleDefault.Reverse(true))
}

func (v *FeedView) drawBackground(screen tcell.Screen, x, y, feedRows, top int, c Card) {
	style := tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	ch := '░'
	if ((c.Index%2)+2)%2 == 1 {
		ch = '▒'
	}
	for r := max(top, 0); r < min(top+feedRows, feedRows); r++ {
		for col := 0; col < gutterWidth; col++ {
			screen.SetContent(x+col, y+r, ch, nil, style)
		}
	}
}

func (v *FeedView) drawCard(screen tcell.Screen, x, y, width, feedRows, top, rows int, c Card) {
	if top >= feedRows || top+rows <= 0 || width < 4 {
		return
	}
	border := tcell.StyleDefault.Foreground(styleForKind(c.Kind))
	text := tcell.StyleDefault

	lines := cardLines(c)
	for r := 0; r < rows; r++ {
		sy := top + r
		if sy < 0 || sy >= feedRows {
			continue
		}
		switch {
		case r == 0:
			drawText(screen, x, y+sy, width, boxEdge('┌', '┐', c.Title, width), border)
		case r == rows-1:
			drawText(screen, x, y+sy, width, boxEdge('└', '┘', "", width), border)
		default:
			screen.SetContent(x, y+sy, '│', nil, border)
			line := ""
			if r-1 < len(lines) {
				line = lines[r-1]
			}
			drawText(screen, x+2, y+sy, width-4, line, text)
			screen.SetContent(x+width-1, y+sy, '│', nil, border)
		}
	}
}

func cardLines(c Card) []string {
	lines := []string{fmt.Sprintf("#%d %s", c.Index, c.Kind)}
	if c.GenZ {
		lines = append(lines, "gen z")
	}
	if c.Flashcard != "" {
		lines = append(lines, "", "? "+c.Flashcard)
	}
	return lines
}

func boxEdge(left, right rune, title string, width int) string {
	if width < 2 {
		return ""
	}
	inner := width - 2
	var b strings.Builder
	b.WriteRune(left)
	if title != "" && inner > 4 {
		t := truncateRunes(" "+title+" ", inner-1)
		b.WriteRune('─')
		b.WriteString(t)
		inner -= 1 + utf8.RuneCountInString(t)
	}
	b.WriteString(strings.Repeat("─", max(inner, 0)))
	b.WriteRune(right)
	return b.String()
}

func formatStatus(st Status) string {
	parts := []string{
		"step " + humanize.FormatFloat("#,###.##", st.Step),
		humanize.FormatFloat("#,###.#", st.Meters.Absolute) + " m",
		"net " + humanize.FormatFloat("#,###.#", st.Meters.Signed) + " m",
	}
	if st.Phase != "" {
		parts = append(parts, st.Phase)
	}
	if st.Velocity != 0 {
		parts = append(parts, humanize.Comma(int64(math.Round(st.Velocity)))+" px/s")
	}
	parts = append(parts, fmt.Sprintf("live %d", st.Live))
	if st.Milestones > 0 {
		parts = append(parts, fmt.Sprintf("milestones %d", st.Milestones))
	}
	if st.Notification != "" {
		parts = append(parts, st.Notification)
	}
	return " " + strings.Join(parts, " | ")
}

func styleForKind(kind manifest.ItemType) tcell.Color {
	switch kind {
	case manifest.TypeVideo:
		return tcell.ColorMediumPurple
	default:
		return tcell.ColorGreen
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	count := 0
	for _, r := range s {
		if count >= max {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	runes := []rune(text)
	for i := 0; i < width; i++ {
		ch := ' '
		if i < len(runes) {
			ch = runes[i]
		}
		screen.SetContent(x+i, y, ch, nil, style)
	}
}
