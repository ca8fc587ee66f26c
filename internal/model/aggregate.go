package model

// WardAggregate summarizes the bed pool of one ward.  It is always derived
// from the bed list and never persisted.
type WardAggregate struct {
    WardID            string `json:"ward_id"`
    Total             int    `json:"total"`
    Functional        int    `json:"functional"`
    PercentFunctional int    `json:"percent_functional"`
}

// Aggregate scans beds and counts those owned by wardID.
func Aggregate(beds []Bed, wardID string) WardAggregate {
    agg := WardAggregate{WardID: wardID}
    for _, b := range beds {
        if b.WardID != wardID {
            continue
        }
        agg.Total++
        if b.IsFunctional() {
            agg.Functional++
        }
    }
    agg.PercentFunctional = Percent(agg.Functional, agg.Total)
    return agg
}

// Percent returns part/total*100 rounded half up, or 0 when total is not
// positive.  The result is clamped to [0,100].
func Percent(part, total int) int {
    if total <= 0 || part <= 0 {
        return 0
    }
    if part >= total {
        return 100
    }
    return (part*200 + total) / (2 * total)
}

// WardStatus is the occupancy summary the bed store reports for a ward.
// Capacity counts functional beds; Occupied comes from the latest census;
// Available is Capacity-Occupied clamped at zero; ActiveSurge counts surge
// beds currently opened.
type WardStatus struct {
    WardID      string `json:"ward_id"`
    Capacity    int    `json:"capacity"`
    Occupied    int    `json:"occupied"`
    Available   int    `json:"available"`
    ActiveSurge int    `json:"active_surge"`
}

// NewWardStatus computes the derived fields of a WardStatus.
func NewWardStatus(wardID string, capacity, occupied, activeSurge int) WardStatus {
    avail := capacity - occupied
    if avail < 0 {
        avail = 0
    }
    return WardStatus{
        WardID:      wardID,
        Capacity:    capacity,
        Occupied:    occupied,
        Available:   avail,
        ActiveSurge: activeSurge,
    }
}
