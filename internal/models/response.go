package models

import "time"

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type ProcessingModeResponse struct {
	ProcessingMode ProcessingMode `json:"processingMode"`
	ThresholdBytes int64          `json:"thresholdBytes"`
}

// CompressForm is the multipart form accompanying a batch.
type CompressForm struct {
	Format  string `form:"format" binding:"omitempty,max=16"`
	Quality string `form:"quality" binding:"omitempty,numeric"`
}
