package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/driveclone/internal/models"
)

var styles = NewPalette("#1A73E8", "#1E8E3E", "#D93025", "#F9AB00", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	badges map[models.JobStatus]lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		badges: map[models.JobStatus]lipgloss.Style{
			models.StatusQueued:      NewBadge(h),
			models.StatusDownloading: NewBadge(t),
			models.StatusUploading:   NewBadge(t),
			models.StatusCompleted:   NewBadge(s),
			models.StatusFailed:      NewBadge(e),
		},
	}
}

// Badge renders status as a colored label.
func (p *Palette) Badge(status models.JobStatus) string {
	style, ok := p.badges[status]
	if !ok {
		style = NewBadge("#626262")
	}
	return style.Render(string(status))
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func NewBadge(bg string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(bg)).
		Padding(0, 1)
}
