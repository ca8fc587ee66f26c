// Package queue defines the bed store's domain events and the consumer that
// writes them to an audit log.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// BedEventsQueue is the durable queue receiving every bed store event.
const BedEventsQueue = "bed.events"

// Event types.
const (
    EventBedRegistered    = "bed.registered"
    EventBedStatusChanged = "bed.status_changed"
    EventCensusRecorded   = "ward.census_recorded"
    EventSurgeUpdated     = "ward.surge_updated"
)

// BedEvent is published after a committed change in the bed store.  It
// carries enough information for downstream consumers to audit or notify
// without querying the store.  Fields that do not apply to an event type
// are omitted.
type BedEvent struct {
    EventID        string `json:"event_id"`
    Type           string `json:"type"`
    WardID         string `json:"ward_id"`
    BedID          string `json:"bed_id,omitempty"`
    BedType        string `json:"bed_type,omitempty"`
    Status         string `json:"status,omitempty"`
    PreviousStatus string `json:"previous_status,omitempty"`
    Occupied       *int   `json:"occupied,omitempty"`
    ActiveSurge    *int   `json:"active_surge,omitempty"`
    StaffID        string `json:"staff_id"`
    OccurredAt     string `json:"occurred_at"`
}

// NewBedEvent stamps a new event with an id and the current UTC time.
func NewBedEvent(eventType, wardID, staffID string) BedEvent {
    return BedEvent{
        EventID:    uuid.NewString(),
        Type:       eventType,
        WardID:     wardID,
        StaffID:    staffID,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
}
