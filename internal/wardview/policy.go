// Package wardview composes the per-ward dashboard view from the bed
// registry, the store's ward status and the shared allocation plan.  One
// parameterised composer serves every ward; the only per-ward differences
// are the values in Policy.
package wardview

import "github.com/iliyamo/ward-bed-registry/internal/model"

// Policy holds the per-ward knobs of the capacity formula.
type Policy struct {
	// CountSurge adds the ward's active surge beds to its available
	// capacity.  Wards without a surge area never count surge.
	CountSurge bool
}

// PolicyFor derives the policy of a ward from its configuration.
func PolicyFor(w model.Ward) Policy {
	return Policy{CountSurge: w.HasSurge()}
}

// AvailableCapacity is functional - occupied (+ activeSurge when the policy
// counts surge), clamped at zero.
func AvailableCapacity(p Policy, functional, occupied, activeSurge int) int {
	avail := functional - occupied
	if p.CountSurge {
		avail += activeSurge
	}
	if avail < 0 {
		return 0
	}
	return avail
}

// IsCritical reports whether more patients are incoming than the ward can
// take.  Equality is not critical.
func IsCritical(totalIncoming, availableCapacity int) bool {
	return totalIncoming > availableCapacity
}
