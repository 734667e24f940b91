package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/potlab/ecx/internal/model"
)

// TablePrinter prints run group information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintSnapshot prints a merged group snapshot.
func (t *TablePrinter) PrintSnapshot(snapshot model.RunGroupSnapshot) error {
	fmt.Fprintf(t.writer, "Group:      %s\n", snapshot.GroupID)
	fmt.Fprintf(t.writer, "Polled:     %s\n", FormatTimestamp(snapshot.PolledAt))
	fmt.Fprintf(t.writer, "All done:   %t\n", snapshot.AllDone)

	if len(snapshot.Statuses) == 0 {
		fmt.Fprintln(t.writer, "No runs reported.")
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "RUN\tBOX\tWELL\tSLOT\tSTATUS\tPROGRESS\tMODE\tREMAINING\tERROR")

	// Print rows
	for _, s := range snapshot.Statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\t%s\n",
			s.RunID,
			s.BoxID,
			s.WellID,
			s.Slot,
			s.State,
			s.ProgressPct,
			s.CurrentMode,
			formatRemaining(s),
			s.ErrorMessage,
		)
	}

	return nil
}

// PrintRunRefs prints the run refs of a dispatched group.
func (t *TablePrinter) PrintRunRefs(refs []model.RunRef) error {
	if len(refs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "GROUP\tRUN\tBOX\tWELL\tSLOT")

	// Print rows
	for _, r := range refs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.GroupID, r.RunID, r.BoxID, r.WellID, r.Slot)
	}

	return nil
}

// PrintGroupList prints groups in a table format.
func (t *TablePrinter) PrintGroupList(groups []model.RunGroup) error {
	if len(groups) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "GROUP\tEXPERIMENT\tRUNS\tCREATED")

	// Print rows
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", g.ID, g.ExperimentName, len(g.Refs), TimeAgo(g.CreatedAt))
	}

	return nil
}

// PrintBoxes prints the configured box fleet.
func (t *TablePrinter) PrintBoxes(boxes []model.BoxConfig) error {
	if len(boxes) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "BOX\tURL\tREQ TIMEOUT\tDL TIMEOUT")

	// Print rows
	for _, b := range boxes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.BaseURL, b.RequestTimeout, b.DownloadTimeout)
	}

	return nil
}

// PrintMessage prints a plain message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func formatRemaining(s model.RunStatus) string {
	parts := []string{}
	if s.RemainingS != nil {
		parts = append(parts, fmt.Sprintf("%.0fs", *s.RemainingS))
	}
	if len(s.RemainingModes) > 0 {
		parts = append(parts, strings.Join(s.RemainingModes, ","))
	}
	return strings.Join(parts, " ")
}
