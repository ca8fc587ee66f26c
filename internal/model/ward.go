package model

// Ward describes a physical care unit with its own bed pool.  The set of
// wards is fixed; capacity is never stored on the ward but derived from the
// beds registered against it.
//
// Fields:
//  ID         – stable ward identifier (e.g. WARD-A).
//  Name       – display name.
//  PlanKey    – key under which allocation plan breakdowns address this
//               ward (empty when the plan does not route patients here).
//  SurgeLimit – maximum number of surge beds the ward may activate.  A
//               ward with a zero limit has no surge area at all.
type Ward struct {
    ID         string `json:"ward_id"`
    Name       string `json:"ward_name"`
    PlanKey    string `json:"-"`
    SurgeLimit int    `json:"surge_limit"`
}

// Ward identifiers.
const (
    WardETU     = "ETU"
    WardA       = "WARD-A"
    WardB       = "WARD-B"
    WardGeneral = "GEN"
)

// Plan breakdown keys used by the forecasting service.
const (
    PlanKeyWardA   = "ward_a"
    PlanKeyWardB   = "ward_b"
    PlanKeyGeneral = "general"
)

var knownWards = []Ward{
    {ID: WardETU, Name: "Emergency Treatment Unit"},
    {ID: WardA, Name: "Ward A (Medical)", PlanKey: PlanKeyWardA, SurgeLimit: 10},
    {ID: WardB, Name: "Ward B (Surgical)", PlanKey: PlanKeyWardB, SurgeLimit: 0},
    {ID: WardGeneral, Name: "General Ward", PlanKey: PlanKeyGeneral, SurgeLimit: 12},
}

// KnownWards returns a copy of the fixed ward set in display order.
func KnownWards() []Ward {
    out := make([]Ward, len(knownWards))
    copy(out, knownWards)
    return out
}

// LookupWard returns the ward with the given id.
func LookupWard(id string) (Ward, bool) {
    for _, w := range knownWards {
        if w.ID == id {
            return w, true
        }
    }
    return Ward{}, false
}

// IsKnownWard reports whether id names one of the fixed wards.
func IsKnownWard(id string) bool {
    _, ok := LookupWard(id)
    return ok
}

// HasSurge reports whether the ward operates a surge area.
func (w Ward) HasSurge() bool { return w.SurgeLimit > 0 }
