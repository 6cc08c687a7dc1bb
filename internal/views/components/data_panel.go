package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const noFileText = "No file loaded."

// DataPanel holds the load button and the name of the loaded file.
type DataPanel struct {
	container  *fyne.Container
	loadButton *widget.Button
	fileLabel  *widget.Label

	loadHandler func()
}

func NewDataPanel() *DataPanel {
	dp := &DataPanel{}
	dp.createComponents()
	dp.buildLayout()
	return dp
}

func (dp *DataPanel) createComponents() {
	dp.loadButton = widget.NewButtonWithIcon("Load CSV", theme.FolderOpenIcon(), func() {
		if dp.loadHandler != nil {
			dp.loadHandler()
		}
	})
	dp.fileLabel = widget.NewLabel(noFileText)
}

func (dp *DataPanel) buildLayout() {
	dp.container = container.NewHBox(dp.loadButton, dp.fileLabel)
}

func (dp *DataPanel) SetLoadHandler(handler func()) {
	dp.loadHandler = handler
}

// SetFileName shows the base name of the loaded file.
func (dp *DataPanel) SetFileName(name string) {
	dp.fileLabel.SetText(name)
}

func (dp *DataPanel) FileName() string {
	return dp.fileLabel.Text
}

// Reset returns the panel to the no-file state.
func (dp *DataPanel) Reset() {
	dp.fileLabel.SetText(noFileText)
}

func (dp *DataPanel) LoadButton() *widget.Button {
	return dp.loadButton
}

func (dp *DataPanel) GetContainer() *fyne.Container {
	return dp.container
}
