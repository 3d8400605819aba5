// Package location decides where an item is processed.
package location

import "github.com/phambaophuc/media-compress/internal/models"

type Location int

const (
	Local Location = iota
	Remote
)

func (l Location) String() string {
	if l == Remote {
		return "remote"
	}
	return "local"
}

// Mode is the wire name reported to callers.
func (l Location) Mode() models.ProcessingMode {
	if l == Remote {
		return models.ProcessingRemote
	}
	return models.ProcessingLocal
}

// Selector routes documents at or above Threshold bytes to the remote
// optimizer. Images always stay in the caller's context.
type Selector struct {
	Threshold int64
}

func NewSelector(threshold int64) Selector {
	return Selector{Threshold: threshold}
}

func (s Selector) Select(kind models.MediaKind, sizeBytes int64) Location {
	if kind == models.MediaDocument && sizeBytes >= s.Threshold {
		return Remote
	}
	return Local
}

// SelectItem routes a source item by its content length.
func (s Selector) SelectItem(kind models.MediaKind, item models.SourceItem) Location {
	return s.Select(kind, int64(len(item.Data)))
}
