package components

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ResultsLog is the read-only, append-only text area holding analysis
// output. It always shows the end of the text after an append.
type ResultsLog struct {
	scroll *container.Scroll
	label  *widget.Label
	text   strings.Builder
}

func NewResultsLog() *ResultsLog {
	rl := &ResultsLog{}
	rl.label = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	rl.scroll = container.NewScroll(rl.label)
	rl.scroll.SetMinSize(fyne.NewSize(0, 250))
	return rl
}

// Append adds text as one or more lines.
func (rl *ResultsLog) Append(text string) {
	rl.text.WriteString(strings.TrimRight(text, "\n"))
	rl.text.WriteString("\n")
	rl.label.SetText(rl.text.String())
	rl.scroll.ScrollToBottom()
}

func (rl *ResultsLog) Clear() {
	rl.text.Reset()
	rl.label.SetText("")
	rl.scroll.ScrollToTop()
}

func (rl *ResultsLog) Text() string {
	return rl.text.String()
}

func (rl *ResultsLog) GetContainer() fyne.CanvasObject {
	return rl.scroll
}
