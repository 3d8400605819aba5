package models

// MediaKind selects which limits and pipeline apply to a batch.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"
)

// ProcessingMode tells the caller where a document was optimized.
type ProcessingMode string

const (
	// ProcessingLocal is the light, in-context pass ("client" on the wire).
	ProcessingLocal ProcessingMode = "client"
	// ProcessingRemote is the stronger server-side optimizer.
	ProcessingRemote ProcessingMode = "server"
)
