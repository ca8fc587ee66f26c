package plan

import "github.com/iliyamo/ward-bed-registry/internal/model"

// keepETUMissing flags a plan that says nothing about the emergency unit.
const keepETUMissing = "action_plan_keep_etu missing"

// WardSlice is the part of the plan one ward view reads: its own transfer
// and surge counts plus the shared KPIs.  The counts are nil when the plan
// does not state them for the ward.
type WardSlice struct {
	WardID        string `json:"ward_id"`
	IncomingWard  *int   `json:"incoming_ward"`
	IncomingSurge *int   `json:"incoming_surge"`
	TotalIncoming *int   `json:"total_incoming"`

	PredictedArrivals   int      `json:"predicted_arrivals"`
	PrimaryDriver       string   `json:"primary_driver,omitempty"`
	SystemStatus        string   `json:"system_status,omitempty"`
	OccupancyPercentage *int     `json:"occupancy_percentage"`
	ConfidenceScore     string   `json:"confidence_score,omitempty"`
	Recommendation      string   `json:"recommendation_text,omitempty"`
	Flags               []string `json:"flags,omitempty"`
}

// SliceFor extracts ward's slice of p.  A ward absent from the surge
// breakdown receives no surge patients.  Wards without a plan key (the
// emergency unit) read the patients the plan keeps there; when the plan
// omits that count the slice has no counts and carries a flag.
func SliceFor(p *model.AllocationPlan, ward model.Ward) WardSlice {
	s := WardSlice{
		WardID:              ward.ID,
		PrimaryDriver:       p.PrimaryDriver,
		SystemStatus:        p.SystemStatus,
		OccupancyPercentage: p.OccupancyPercentage,
		ConfidenceScore:     p.ConfidenceScore,
		Recommendation:      p.RecommendationText,
		Flags:               p.Flags,
	}
	if p.PredictedArrivals != nil {
		s.PredictedArrivals = *p.PredictedArrivals
	}
	var incoming, surge int
	if ward.PlanKey == "" {
		if p.KeepETU == nil {
			s.Flags = append(append([]string{}, p.Flags...), keepETUMissing)
			return s
		}
		incoming = *p.KeepETU
	} else {
		incoming, _ = p.Transfers.For(ward.PlanKey)
		surge, _ = p.SurgeBreakdown.For(ward.PlanKey)
	}
	total := incoming + surge
	s.IncomingWard, s.IncomingSurge, s.TotalIncoming = &incoming, &surge, &total
	return s
}
