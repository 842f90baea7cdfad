// Package ui implements the clone dashboard using bubbletea's Elm architecture.
//
// The [Model] shows a link input above the job list. Enter queues a Drive link, ctrl+r runs the queue,
// and tab moves focus to the list where jobs can be removed, cancelled or retried.
//
// Runs execute on a background goroutine. Progress updates flow through a channel read by a command that
// re-arms itself after every update, so the list is reloaded from the store as jobs advance.
package ui
