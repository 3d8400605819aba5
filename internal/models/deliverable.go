package models

// Deliverable is the single response body produced for a batch.
type Deliverable struct {
	Filename    string
	ContentType string
	Data        []byte
	Items       []ItemReport
	Rejected    int
	Failed      int
}
