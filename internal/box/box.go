package box

import (
	"context"
	"io"
	"time"
)

// StartJobRequest describes one job to create on a box: one entry of a
// dispatch batch, targeting one device slot.
type StartJobRequest struct {
	GroupID        string
	Slot           string
	WellID         string
	Modes          []string
	ParamsByMode   map[string]map[string]any
	ExperimentName string
	Subdir         string
	ClientDateTime time.Time
	// GeneratePlots asks the box to render result plots as part of the job.
	GeneratePlots bool
}

// JobPayload is one run's poll payload as reported by a box. Boxes run
// different firmware generations and fill these fields unevenly, so the
// loosely typed fields stay raw here; normalization into model.RunStatus
// happens in the poll orchestrator.
type JobPayload struct {
	RunID     string
	Status    string
	StartedAt *time.Time
	EndedAt   *time.Time
	// ProgressPct and RemainingS are whatever the box sent: a number, a
	// numeric string on older firmwares, or nil when absent.
	ProgressPct any
	RemainingS  any
	CurrentMode string
	// LegacyMode is the single-mode field reported by boxes that predate
	// multi-mode jobs.
	LegacyMode string
	// RemainingModes is a sequence of mode tokens when present.
	RemainingModes any
	// Message is the per-slot diagnostic message, set on failures.
	Message string
}

// CancelResult confirms a cancel call.
type CancelResult struct {
	RunID  string
	Status string
}

// Client is the port every box implementation must satisfy: one instance per
// configured box, carrying that box's address and credential.
type Client interface {
	// StartJob creates one job on the box and returns the assigned run id.
	StartJob(ctx context.Context, req StartJobRequest) (runID string, err error)

	// PollJobs returns the current payloads for the requested run ids in one
	// batched call. A run the box no longer knows about is simply absent from
	// the reply.
	PollJobs(ctx context.Context, runIDs []string) ([]JobPayload, error)

	// CancelJob requests cancellation of one run. Cancelling an already
	// terminal run is accepted by boxes as a no-op.
	CancelJob(ctx context.Context, runID string) (*CancelResult, error)

	// DownloadResult streams the result archive of one run. The caller must
	// close the reader.
	DownloadResult(ctx context.Context, runID string) (io.ReadCloser, error)
}
