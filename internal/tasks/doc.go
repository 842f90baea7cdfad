// Package tasks drives clone jobs through their transfer lifecycle with real-time progress reporting.
//
// # Components
//
//  1. [Transfer] : moves the bytes for a job in two phases, download then upload
//     - [SimulatedTransfer] advances progress on a ticker and never touches the network
//
//  2. [Driver] : advances one queued job to completed or failed
//     - maps download progress to 0..50 and upload progress to 50..100
//     - classifies failures as cancelled, timeout or transfer_failed
//     - accepts external cancellation through [Driver.Cancel]
//
//  3. [Orchestrator] : drives every queued job sequentially behind a busy flag
//     - [Orchestrator.RunAll] blocks until the snapshot is drained
//     - [Orchestrator.RunAsync] runs in the background for the HTTP server and TUI
//
//  4. [ImportLinks] : bulk-queues links with rate-limited name resolution
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct carries the phase, job id, status and overall progress.
// Updates use select with default so a slow consumer never stalls a transfer.
package tasks
