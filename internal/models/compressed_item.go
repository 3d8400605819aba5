package models

import "math"

// CompressionAttempt is one pass of the quality search.
type CompressionAttempt struct {
	AttemptIndex    int
	QualityUsed     int
	ResultSizeBytes int64
}

// CompressedItem is the engine's output for one source item.
type CompressedItem struct {
	SourceName       string
	OutputName       string
	MIMEType         string
	Data             []byte
	OriginalSize     int64
	FinalSize        int64
	ReductionPercent float64
	Attempts         int
	KeptOriginal     bool
	ProcessingMode   ProcessingMode
}

// ReductionPercent returns round((1 - final/original) * 100, 1), clamped to >= 0.
func ReductionPercent(original, final int64) float64 {
	if original <= 0 || final >= original {
		return 0
	}
	pct := (1 - float64(final)/float64(original)) * 100
	return math.Round(pct*10) / 10
}

// ItemReport is the per-item entry returned to callers alongside the deliverable.
type ItemReport struct {
	Name             string         `json:"name"`
	OutputName       string         `json:"outputName,omitempty"`
	OriginalSize     int64          `json:"originalSize"`
	FinalSize        int64          `json:"finalSize,omitempty"`
	ReductionPercent float64        `json:"reductionPercent"`
	Attempts         int            `json:"attempts,omitempty"`
	KeptOriginal     bool           `json:"keptOriginal,omitempty"`
	ProcessingMode   ProcessingMode `json:"processingMode,omitempty"`
	Error            string         `json:"error,omitempty"`
}

func (c *CompressedItem) Report() ItemReport {
	return ItemReport{
		Name:             c.SourceName,
		OutputName:       c.OutputName,
		OriginalSize:     c.OriginalSize,
		FinalSize:        c.FinalSize,
		ReductionPercent: c.ReductionPercent,
		Attempts:         c.Attempts,
		KeptOriginal:     c.KeptOriginal,
		ProcessingMode:   c.ProcessingMode,
	}
}
