package printer_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potlab/ecx/internal/model"
	"github.com/potlab/ecx/internal/printer"
)

func TestTablePrinterPrintSnapshot(t *testing.T) {
	remaining := 120.0
	snapshot := model.RunGroupSnapshot{
		GroupID:  "grp20260830093015123",
		AllDone:  false,
		PolledAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Statuses: []model.RunStatus{
			{
				RunID:          "run-1",
				BoxID:          "box-a",
				WellID:         "A1",
				Slot:           "ch1",
				State:          model.RunStateRunning,
				ProgressPct:    40,
				RemainingS:     &remaining,
				CurrentMode:    "cv",
				RemainingModes: []string{"eis"},
			},
			{
				RunID:        "run-2",
				BoxID:        "box-b",
				WellID:       "B1",
				Slot:         "ch1",
				State:        model.RunStateFailed,
				ErrorMessage: "potentiostat overload",
			},
		},
	}

	var buf bytes.Buffer
	err := printer.NewTablePrinter(&buf).PrintSnapshot(snapshot)

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Group:      grp20260830093015123")
	assert.Contains(t, out, "All done:   false")
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "120s eis")
	assert.Contains(t, out, "potentiostat overload")
}

func TestTablePrinterPrintSnapshotNoRuns(t *testing.T) {
	var buf bytes.Buffer
	err := printer.NewTablePrinter(&buf).PrintSnapshot(model.RunGroupSnapshot{GroupID: "grp1"})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No runs reported.")
}

func TestTablePrinterPrintGroupList(t *testing.T) {
	groups := []model.RunGroup{
		{
			ID:             "grp1",
			ExperimentName: "corrosion sweep",
			CreatedAt:      time.Now().Add(-2 * time.Hour),
			Refs:           []model.RunRef{{RunID: "run-1"}, {RunID: "run-2"}},
		},
	}

	var buf bytes.Buffer
	err := printer.NewTablePrinter(&buf).PrintGroupList(groups)

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "grp1")
	assert.Contains(t, out, "corrosion sweep")
	assert.Contains(t, out, "2")
}

func TestJSONPrinterPrintSnapshot(t *testing.T) {
	snapshot := model.RunGroupSnapshot{
		GroupID:  "grp1",
		AllDone:  true,
		PolledAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Statuses: []model.RunStatus{
			{
				RunID:          "run-1",
				BoxID:          "box-a",
				Slot:           "ch1",
				State:          model.RunStateDone,
				ProgressPct:    100,
				RemainingModes: []string{},
			},
		},
	}

	var buf bytes.Buffer
	err := printer.NewJSONPrinter(&buf).PrintSnapshot(snapshot)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "grp1", got["group_id"])
	assert.Equal(t, true, got["all_done"])

	statuses := got["statuses"].([]any)
	require.Len(t, statuses, 1)
	status := statuses[0].(map[string]any)
	assert.Equal(t, "run-1", status["run_id"])
	assert.Equal(t, "done", status["status"])
	assert.Equal(t, 100.0, status["progress_pct"])
}

func TestJSONPrinterPrintBoxes(t *testing.T) {
	boxes := []model.BoxConfig{
		{
			ID:              "box-a",
			BaseURL:         "http://box-a.lab:8080",
			RequestTimeout:  15 * time.Second,
			DownloadTimeout: 5 * time.Minute,
		},
	}

	var buf bytes.Buffer
	err := printer.NewJSONPrinter(&buf).PrintBoxes(boxes)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got, 1)
	assert.Equal(t, "box-a", got[0]["id"])
	assert.Equal(t, "15s", got[0]["request_timeout"])
	assert.Equal(t, "5m0s", got[0]["download_timeout"])
}
