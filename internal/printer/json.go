package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/potlab/ecx/internal/model"
)

// JSONPrinter prints run group information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// snapshotOutput represents the full snapshot output.
type snapshotOutput struct {
	GroupID  string            `json:"group_id"`
	AllDone  bool              `json:"all_done"`
	PolledAt time.Time         `json:"polled_at"`
	Statuses []runStatusOutput `json:"statuses"`
}

// runStatusOutput represents one run status in the snapshot output.
type runStatusOutput struct {
	RunID          string     `json:"run_id"`
	BoxID          string     `json:"box_id"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	ProgressPct    float64    `json:"progress_pct"`
	RemainingS     *float64   `json:"remaining_s,omitempty"`
	CurrentMode    string     `json:"current_mode,omitempty"`
	RemainingModes []string   `json:"remaining_modes"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	WellID         string     `json:"well_id,omitempty"`
	Slot           string     `json:"slot"`
}

// runRefOutput represents one run ref in the refs output.
type runRefOutput struct {
	GroupID string `json:"group_id"`
	RunID   string `json:"run_id"`
	BoxID   string `json:"box_id"`
	WellID  string `json:"well_id,omitempty"`
	Slot    string `json:"slot"`
}

// groupItem represents a group in the list output (subset of fields).
type groupItem struct {
	ID             string    `json:"id"`
	ExperimentName string    `json:"experiment_name"`
	Subdir         string    `json:"subdir,omitempty"`
	Runs           int       `json:"runs"`
	CreatedAt      time.Time `json:"created_at"`
}

// boxItem represents one configured box in the fleet output.
type boxItem struct {
	ID              string `json:"id"`
	BaseURL         string `json:"base_url"`
	RequestTimeout  string `json:"request_timeout"`
	DownloadTimeout string `json:"download_timeout"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintSnapshot prints a merged group snapshot in JSON format.
func (j *JSONPrinter) PrintSnapshot(snapshot model.RunGroupSnapshot) error {
	output := snapshotOutput{
		GroupID:  snapshot.GroupID,
		AllDone:  snapshot.AllDone,
		PolledAt: snapshot.PolledAt.UTC(),
		Statuses: make([]runStatusOutput, 0, len(snapshot.Statuses)),
	}

	for _, s := range snapshot.Statuses {
		output.Statuses = append(output.Statuses, runStatusOutput{
			RunID:          s.RunID,
			BoxID:          s.BoxID,
			Status:         string(s.State),
			StartedAt:      s.StartedAt,
			EndedAt:        s.EndedAt,
			ProgressPct:    s.ProgressPct,
			RemainingS:     s.RemainingS,
			CurrentMode:    s.CurrentMode,
			RemainingModes: s.RemainingModes,
			ErrorMessage:   s.ErrorMessage,
			WellID:         s.WellID,
			Slot:           s.Slot,
		})
	}

	return j.encode(output)
}

// PrintRunRefs prints run refs in JSON format.
func (j *JSONPrinter) PrintRunRefs(refs []model.RunRef) error {
	items := make([]runRefOutput, 0, len(refs))
	for _, r := range refs {
		items = append(items, runRefOutput{
			GroupID: r.GroupID,
			RunID:   r.RunID,
			BoxID:   r.BoxID,
			WellID:  r.WellID,
			Slot:    r.Slot,
		})
	}

	return j.encode(items)
}

// PrintGroupList prints groups in JSON format with a subset of fields.
func (j *JSONPrinter) PrintGroupList(groups []model.RunGroup) error {
	items := make([]groupItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, groupItem{
			ID:             g.ID,
			ExperimentName: g.ExperimentName,
			Subdir:         g.Subdir,
			Runs:           len(g.Refs),
			CreatedAt:      g.CreatedAt.UTC(),
		})
	}

	return j.encode(items)
}

// PrintBoxes prints the configured box fleet in JSON format.
func (j *JSONPrinter) PrintBoxes(boxes []model.BoxConfig) error {
	items := make([]boxItem, 0, len(boxes))
	for _, b := range boxes {
		items = append(items, boxItem{
			ID:              b.ID,
			BaseURL:         b.BaseURL,
			RequestTimeout:  b.RequestTimeout.String(),
			DownloadTimeout: b.DownloadTimeout.String(),
		})
	}

	return j.encode(items)
}

// PrintMessage prints a message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
