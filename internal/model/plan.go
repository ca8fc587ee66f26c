package model

import (
    "bytes"
    "encoding/json"
    "errors"
    "fmt"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/ward-bed-registry/internal/apperr"
)

// TransferBreakdown is the per-ward transfer recommendation.  Every ward key
// must be present; a missing key makes the whole document malformed.
type TransferBreakdown struct {
    WardA   *int `json:"ward_a" validate:"required,min=0"`
    WardB   *int `json:"ward_b" validate:"required,min=0"`
    General *int `json:"general" validate:"required,min=0"`
}

// SurgeBreakdown is the per-ward surge bed recommendation.  Keys may be
// omitted for wards that receive no surge patients.
type SurgeBreakdown struct {
    WardA   *int `json:"ward_a,omitempty" validate:"omitempty,min=0"`
    WardB   *int `json:"ward_b,omitempty" validate:"omitempty,min=0"`
    General *int `json:"general,omitempty" validate:"omitempty,min=0"`
}

// AllocationPlan is the forecast/optimization document published by the
// forecasting service.  It is immutable once decoded and is replaced as a
// whole by the next fetch.
type AllocationPlan struct {
    PredictedArrivals   *int   `json:"predicted_arrivals" validate:"required,min=0"`
    PrimaryDriver       string `json:"primary_driver"`
    SystemStatus        string `json:"system_status" validate:"omitempty,oneof=NORMAL CRITICAL"`
    OccupancyPercentage *int   `json:"occupancy_percentage" validate:"omitempty,min=0"`
    ConfidenceScore     string `json:"confidence_score"`
    CurrentOccupancy    *int   `json:"current_occupancy,omitempty" validate:"omitempty,min=0"`
    TotalCapacity       *int   `json:"total_capacity,omitempty" validate:"omitempty,min=0"`
    TimeframeLabel      string `json:"timeframe_label,omitempty"`
    ModelUsed           string `json:"model_used,omitempty"`
    OptimizationStatus  string `json:"optimization_status,omitempty"`
    RecommendationText  string `json:"recommendation_text,omitempty"`

    Transfers      *TransferBreakdown `json:"action_plan_transfers" validate:"required"`
    SurgeBreakdown *SurgeBreakdown    `json:"action_plan_surge_breakdown,omitempty"`
    Surge          *int               `json:"action_plan_surge,omitempty" validate:"omitempty,min=0"`
    External       *int               `json:"action_plan_external,omitempty" validate:"omitempty,min=0"`
    KeepETU        *int               `json:"action_plan_keep_etu,omitempty" validate:"omitempty,min=0"`
    ShortageCount  *int               `json:"shortage_count,omitempty" validate:"omitempty,min=0"`

    // Flags lists optional fields that were absent or inconsistent.  A
    // flagged plan is still usable; the flags are surfaced next to it.
    Flags []string `json:"flags,omitempty"`
}

// DecodePlan parses and validates a plan document.  Documents that are not
// JSON objects, miss required fields or carry negative counts are rejected
// with a malformed error.  Absent optional fields are recorded in Flags.
func DecodePlan(data []byte) (*AllocationPlan, error) {
    data = bytes.TrimSpace(data)
    if len(data) == 0 || data[0] != '{' {
        return nil, apperr.Malformed("plan document is not a JSON object", nil)
    }
    var p AllocationPlan
    if err := json.Unmarshal(data, &p); err != nil {
        return nil, apperr.Malformed("plan document could not be decoded", err)
    }
    p.Flags = nil
    if err := validate.Struct(&p); err != nil {
        var verrs validator.ValidationErrors
        if errors.As(err, &verrs) && len(verrs) > 0 {
            fe := verrs[0]
            return nil, apperr.Malformed(fmt.Sprintf("plan field %s failed %s", fe.Namespace(), fe.Tag()), err)
        }
        return nil, apperr.Malformed("plan document failed validation", err)
    }
    p.Flags = p.missingOptional()
    return &p, nil
}

func (p *AllocationPlan) missingOptional() []string {
    var flags []string
    if p.PrimaryDriver == "" {
        flags = append(flags, "primary_driver missing")
    }
    if p.SystemStatus == "" {
        flags = append(flags, "system_status missing")
    }
    if p.OccupancyPercentage == nil {
        flags = append(flags, "occupancy_percentage missing")
    }
    if p.ConfidenceScore == "" {
        flags = append(flags, "confidence_score missing")
    }
    if p.SurgeBreakdown == nil {
        flags = append(flags, "action_plan_surge_breakdown missing")
    }
    if p.Surge != nil && p.SurgeBreakdown != nil {
        sum := 0
        for _, k := range []string{PlanKeyWardA, PlanKeyWardB, PlanKeyGeneral} {
            if v, ok := p.SurgeBreakdown.For(k); ok {
                sum += v
            }
        }
        if sum != *p.Surge {
            flags = append(flags, fmt.Sprintf("action_plan_surge %d does not match breakdown total %d", *p.Surge, sum))
        }
    }
    return flags
}

// For returns the transfer count for a plan key.
func (t *TransferBreakdown) For(key string) (int, bool) {
    if t == nil {
        return 0, false
    }
    return pick(key, t.WardA, t.WardB, t.General)
}

// For returns the surge count for a plan key.  The second result is false
// when the breakdown does not mention the ward.
func (s *SurgeBreakdown) For(key string) (int, bool) {
    if s == nil {
        return 0, false
    }
    return pick(key, s.WardA, s.WardB, s.General)
}

func pick(key string, a, b, g *int) (int, bool) {
    var v *int
    switch key {
    case PlanKeyWardA:
        v = a
    case PlanKeyWardB:
        v = b
    case PlanKeyGeneral:
        v = g
    }
    if v == nil {
        return 0, false
    }
    return *v, true
}
