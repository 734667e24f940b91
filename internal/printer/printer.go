package printer

import "github.com/potlab/ecx/internal/model"

// Printer knows how to print run group information in different formats.
type Printer interface {
	PrintSnapshot(snapshot model.RunGroupSnapshot) error
	PrintRunRefs(refs []model.RunRef) error
	PrintGroupList(groups []model.RunGroup) error
	PrintBoxes(boxes []model.BoxConfig) error
	PrintMessage(msg string) error
}
