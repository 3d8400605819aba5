package models

import "time"

// SourceItem is one uploaded file. Data must not be modified after creation.
type SourceItem struct {
	Name      string
	MIMEType  string
	SizeBytes int64
	Data      []byte
}

// UploadBatch is the request-scoped set of files submitted together.
type UploadBatch struct {
	Kind      MediaKind
	Requester string
	Format    Format
	Quality   int
	Items     []SourceItem
	CreatedAt time.Time
}

// IntakeResult is what survives validation.
type IntakeResult struct {
	Accepted      []SourceItem
	RejectedCount int
}
