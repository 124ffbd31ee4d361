package models

import (
	"time"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

// LiveSession is an in-progress test held in the session store, not in the database
type LiveSession struct {
	ID           string               `json:"id"`
	UserID       uint                 `json:"user_id"`
	AssignmentID *uint                `json:"assignment_id,omitempty"`
	Difficulty   kraepelin.Difficulty `json:"difficulty"`
	Session      *kraepelin.Session   `json:"session"`
	CreatedAt    time.Time            `json:"created_at"`

	// ResultID is set once the finished session has been persisted
	ResultID *uint `json:"result_id,omitempty"`
}

// Persisted reports whether the result row has been written
func (s *LiveSession) Persisted() bool {
	return s.ResultID != nil
}
