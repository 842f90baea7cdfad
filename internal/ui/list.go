package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/desertthunder/driveclone/internal/models"
)

var _ list.Item = jobItem{}

var bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))

// jobItem wraps [models.CloneJob] to implement [list.Item].
type jobItem struct {
	job models.CloneJob
}

func (i jobItem) FilterValue() string { return i.job.FileName }
func (i jobItem) Title() string {
	return fmt.Sprintf("%s %s", styles.Badge(i.job.Status), i.job.FileName)
}
func (i jobItem) Description() string {
	desc := fmt.Sprintf("%s %s", bar.ViewAs(float64(i.job.Progress)/100), i.job.FileType)
	if i.job.Error != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.job.Error)
	}
	return desc
}

func jobItems(jobs []models.CloneJob) []list.Item {
	items := make([]list.Item, len(jobs))
	for i, job := range jobs {
		items[i] = jobItem{job: job}
	}
	return items
}
