package model

import (
	"fmt"
	"strings"
)

// EntryDraft is one operator-specified unit of work targeting exactly one
// device slot on one box. It is only mutated by the operator before dispatch;
// once included in a StartGroupCommand it is treated as immutable.
type EntryDraft struct {
	BoxID        string
	Slot         string
	WellID       string
	Modes        []string
	ParamsByMode map[string]map[string]any
}

// NormalizeEntry cleans one draft entry into its canonical form: identifiers
// are trimmed, modes are deduplicated preserving the operator-chosen order,
// and every requested mode gets a (possibly empty) parameter map.
//
// This is a local pre-check only; server-side mode validation happens on the
// boxes. No network or storage side effects.
func NormalizeEntry(e EntryDraft) (EntryDraft, error) {
	normalized := EntryDraft{
		BoxID:  strings.TrimSpace(e.BoxID),
		Slot:   strings.TrimSpace(e.Slot),
		WellID: strings.TrimSpace(e.WellID),
	}

	if normalized.BoxID == "" {
		return EntryDraft{}, fmt.Errorf("entry box is required: %w", ErrNotValid)
	}
	if normalized.Slot == "" {
		return EntryDraft{}, fmt.Errorf("entry slot is required: %w", ErrNotValid)
	}

	seen := map[string]bool{}
	modes := make([]string, 0, len(e.Modes))
	for _, m := range e.Modes {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		modes = append(modes, m)
	}
	normalized.Modes = modes

	// Only parameters of requested modes survive normalization.
	params := make(map[string]map[string]any, len(modes))
	for _, m := range modes {
		p := map[string]any{}
		for k, v := range e.ParamsByMode[m] {
			p[k] = v
		}
		params[m] = p
	}
	normalized.ParamsByMode = params

	return normalized, nil
}
