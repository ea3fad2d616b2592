package types

import (
	"time"

	"github.com/google/uuid"
)

// HealthStatus represents the health status of a service
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse is the error body returned by every endpoint
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse wraps informational responses
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ProgressUpdate is pushed to WebSocket clients while a squad is being optimized
type ProgressUpdate struct {
	Type         string    `json:"type"`
	Progress     float64   `json:"progress"`
	Message      string    `json:"message"`
	CurrentStep  string    `json:"current_step"`
	Nodes        int64     `json:"nodes,omitempty"`
	BestScore    *float64  `json:"best_score,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Optimization uuid.UUID `json:"optimization_id"`
	Timestamp    time.Time `json:"timestamp"`
}
