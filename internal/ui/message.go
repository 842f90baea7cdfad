package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobAdded MsgKind = iota
	MsgProgressUpdate
	MsgRunComplete
	MsgActionDone
)

type jobAdded struct {
	job models.CloneJob
	err error
}

type runComplete struct {
	result *tasks.RunResult
	err    error
}

type actionDone struct {
	status string
	err    error
}

// jobAddedMsg is the constructor for [MsgJobAdded]
func jobAddedMsg(job models.CloneJob, err error) Msg {
	return Msg{kind: MsgJobAdded, data: jobAdded{job, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runComplete{result, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{status, err}}
}
