package types

import "time"

// Student lifecycle event types.
const (
	StudentCreated       = "student.created"
	StudentUpdated       = "student.updated"
	StudentStatusChanged = "student.status_changed"
	StudentDeleted       = "student.deleted"
)

// StudentEvent is published after a student record changes.
type StudentEvent struct {
	Type       string    `json:"type"`
	StudentID  int       `json:"studentId"`
	ActorID    *int      `json:"actorId,omitempty"`
	Status     *bool     `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
