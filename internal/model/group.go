package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// GroupIDPrefix is the fixed prefix of every group identifier.
	GroupIDPrefix = "grp"
	// DefaultExperimentName is used when the operator leaves the experiment
	// name blank.
	DefaultExperimentName = "untitled"

	// Group ids are the prefix plus a compact millisecond timestamp with no
	// separators, e.g. "grp20260830093015123".
	groupIDTimeLayout = "20060102150405"
)

// StartGroupCommand is the immutable description of one dispatch batch.
// It is created once per dispatch and never mutated.
type StartGroupCommand struct {
	GroupID        string
	ClientDateTime time.Time
	ExperimentName string
	Subdir         string
	Entries        []EntryDraft
}

// BuildStartGroupCommand assigns a group identifier and timestamp, normalizes
// all entries and yields a single start command. It is a pure function of the
// injected clock: the group id and ClientDateTime are derived from the same
// instant.
func BuildStartGroupCommand(now func() time.Time, experimentName, subdir string, entries []EntryDraft) (*StartGroupCommand, error) {
	if now == nil {
		now = time.Now
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("at least one entry is required: %w", ErrNotValid)
	}

	experimentName = strings.TrimSpace(experimentName)
	if experimentName == "" {
		experimentName = DefaultExperimentName
	}

	normalized := make([]EntryDraft, 0, len(entries))
	for i, e := range entries {
		ne, err := NormalizeEntry(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		normalized = append(normalized, ne)
	}

	ts := now().UTC()

	return &StartGroupCommand{
		GroupID:        GroupIDFromTime(ts),
		ClientDateTime: ts,
		ExperimentName: experimentName,
		Subdir:         strings.TrimSpace(subdir),
		Entries:        normalized,
	}, nil
}

// GroupIDFromTime derives the group identifier token for an instant.
func GroupIDFromTime(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%s%03d", GroupIDPrefix, t.Format(groupIDTimeLayout), t.Nanosecond()/int(time.Millisecond))
}

// RunGroup is the locally stored bookkeeping of one dispatched batch: its
// identity plus the run refs obtained at start time. Run status is never
// stored, the boxes stay the single source of truth.
type RunGroup struct {
	ID             string
	ExperimentName string
	Subdir         string
	ClientDateTime time.Time
	CreatedAt      time.Time
	Refs           []RunRef
}

// RunRef points at the remote job created for one successfully dispatched
// entry. Created at start time, immutable, held for the lifetime of the group.
type RunRef struct {
	GroupID string
	BoxID   string
	RunID   string
	WellID  string
	Slot    string
}
