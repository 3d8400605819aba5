package location

import (
	"testing"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	s := NewSelector(5 << 20)

	tests := []struct {
		name string
		kind models.MediaKind
		size int64
		want models.ProcessingMode
	}{
		{"3MB document", models.MediaDocument, 3 << 20, models.ProcessingLocal},
		{"8MB document", models.MediaDocument, 8 << 20, models.ProcessingRemote},
		{"at threshold", models.MediaDocument, 5 << 20, models.ProcessingRemote},
		{"just under", models.MediaDocument, 5<<20 - 1, models.ProcessingLocal},
		{"large image", models.MediaImage, 20 << 20, models.ProcessingLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Select(tt.kind, tt.size).Mode())
		})
	}
}

func TestSelectItem(t *testing.T) {
	s := NewSelector(4)
	assert.Equal(t, Remote, s.SelectItem(models.MediaDocument, models.SourceItem{Data: []byte("%PDF")}))
	assert.Equal(t, "local", s.SelectItem(models.MediaDocument, models.SourceItem{Data: []byte("%PD")}).String())
}
