// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/boardpulse/internal/models"
)

// SchemaVersion is the current event schema version. Increment on breaking
// changes to ActivityEvent; consumers accept older versions.
const SchemaVersion = 1

// ActivityEvent is the wire format for one activity log entry.
type ActivityEvent struct {
	SchemaVersion int `json:"schema_version,omitempty"`

	EventID    string    `json:"event_id"`
	ProjectID  string    `json:"project_id"`
	UserID     string    `json:"user_id"`
	ActionType string    `json:"action_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewActivityEvent builds an event with a generated ID and the current
// schema version.
func NewActivityEvent(projectID, userID, actionType, entityType, entityID string, occurredAt time.Time) *ActivityEvent {
	return &ActivityEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		ProjectID:     projectID,
		UserID:        userID,
		ActionType:    actionType,
		EntityType:    entityType,
		EntityID:      entityID,
		OccurredAt:    occurredAt,
	}
}

// Validate checks the fields the consumer cannot tolerate missing.
func (e *ActivityEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if e.ActionType == "" {
		return fmt.Errorf("action_type is required")
	}
	if e.EntityType == "" {
		return fmt.Errorf("entity_type is required")
	}
	if e.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	if e.SchemaVersion > SchemaVersion {
		return fmt.Errorf("unsupported schema version %d", e.SchemaVersion)
	}
	return nil
}

// ToLogEntry converts the event to its stored form.
func (e *ActivityEvent) ToLogEntry() *models.ActivityLogEntry {
	return &models.ActivityLogEntry{
		ID:         e.EventID,
		ProjectID:  e.ProjectID,
		UserID:     e.UserID,
		ActionType: e.ActionType,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		CreatedAt:  e.OccurredAt,
	}
}

// ToMessage marshals the event into a Watermill message keyed by EventID,
// which doubles as the JetStream deduplication ID.
func (e *ActivityEvent) ToMessage() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal activity event %s: %w", e.EventID, err)
	}
	return message.NewMessage(e.EventID, payload), nil
}

// EventFromMessage unmarshals and validates an event from a Watermill
// message.
func EventFromMessage(msg *message.Message) (*ActivityEvent, error) {
	var event ActivityEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal activity event %s: %w", msg.UUID, err)
	}
	if event.SchemaVersion == 0 {
		event.SchemaVersion = 1
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid activity event %s: %w", msg.UUID, err)
	}
	return &event, nil
}
