package model

import (
    "strings"
    "time"
)

// BedType classifies a physical bed.
type BedType string

const (
    BedTypeStandard BedType = "Standard"
    BedTypeICU      BedType = "ICU/Trauma"
    BedTypeSurgical BedType = "Surgical"
)

// BedStatus is the functional state of a bed.
type BedStatus string

const (
    StatusFunctional BedStatus = "Functional"
    StatusBroken     BedStatus = "Broken"
)

// Bed is an individually tracked physical bed owned by exactly one ward.
// BedID is unique across all wards and WardID never changes after
// registration.  Beds are only mutated through status changes.
type Bed struct {
    BedID     string    `json:"bed_id"`
    BedType   BedType   `json:"bed_type"`
    WardID    string    `json:"ward_id"`
    WardName  string    `json:"ward_name"`
    Status    BedStatus `json:"status"`
    AddedAt   time.Time `json:"added_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// IsFunctional reports whether the bed can currently take a patient.
func (b Bed) IsFunctional() bool { return b.Status == StatusFunctional }

// ParseBedType normalizes a bed type label.  Besides the canonical values it
// accepts the long labels used by the inventory screen ("Standard Hospital
// Bed", "Trauma / ICU Bed", "Surgical Bed").  An empty label defaults to
// Standard.
func ParseBedType(raw string) (BedType, bool) {
    s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
    switch s {
    case "", "standard", "standard hospital bed":
        return BedTypeStandard, true
    case "icu/trauma", "icu", "trauma", "trauma / icu bed", "trauma/icu", "icu / trauma":
        return BedTypeICU, true
    case "surgical", "surgical bed":
        return BedTypeSurgical, true
    }
    return "", false
}

// ParseBedStatus accepts Functional or Broken in any letter case.
func ParseBedStatus(raw string) (BedStatus, bool) {
    switch strings.ToLower(strings.TrimSpace(raw)) {
    case "functional":
        return StatusFunctional, true
    case "broken":
        return StatusBroken, true
    }
    return "", false
}

// Toggle returns the opposite status.
func (s BedStatus) Toggle() BedStatus {
    if s == StatusFunctional {
        return StatusBroken
    }
    return StatusFunctional
}

// Valid reports whether s is one of the two defined statuses.
func (s BedStatus) Valid() bool {
    return s == StatusFunctional || s == StatusBroken
}
