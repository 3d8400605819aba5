package queue

const (
	contentTypePDF = "application/pdf"

	// headerStatus is set on every reply: statusOK or statusError.
	headerStatus = "x-status"
	// headerError carries a client-safe message when the status is statusError.
	headerError = "x-error"

	statusOK    = "ok"
	statusError = "error"
)
