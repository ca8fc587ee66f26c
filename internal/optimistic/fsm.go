// Package optimistic drives bed status edits through an explicit state
// machine.  Transition is pure; Controller performs the remote call and
// feeds its outcome back as events.
package optimistic

import (
	"errors"

	"github.com/iliyamo/ward-bed-registry/internal/model"
)

// Phase of a bed's edit cycle.
type Phase int

const (
	Idle Phase = iota
	Pending
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// EventKind enumerates the inputs of Transition.
type EventKind int

const (
	// Submit starts a mutation.  It is rejected while one is pending.
	Submit EventKind = iota
	// Supersede replaces the pending mutation with a newer one.
	Supersede
	// Succeed reports the store accepted mutation Seq.
	Succeed
	// Fail reports the store rejected mutation Seq or could not be reached.
	Fail
)

var (
	// ErrEditLocked is returned for a Submit while a mutation is pending.
	ErrEditLocked = errors.New("bed status edit already in progress")
	// ErrNotPending is returned for a Supersede with nothing to supersede.
	ErrNotPending = errors.New("no pending status edit")
	// ErrStaleResult marks a result for a mutation that is no longer the
	// newest one.  Its outcome is not displayed.
	ErrStaleResult = errors.New("result of superseded edit discarded")
)

// State is the edit state of one bed.
//
// Snapshot is the last status confirmed by the store; Target is the status
// of the newest mutation.  Seq numbers mutations; ConfirmedSeq is the Seq
// whose success produced Snapshot.
type State struct {
	Phase        Phase
	Snapshot     model.BedStatus
	Target       model.BedStatus
	Seq          uint64
	ConfirmedSeq uint64
	Err          error
}

// Event is one input of Transition.  Confirmed carries the status returned
// by the store on Succeed.
type Event struct {
	Kind      EventKind
	Target    model.BedStatus
	Seq       uint64
	Confirmed model.BedStatus
	Err       error
}

// Displayed is the status shown to the user: the optimistic target while
// pending, the confirmed snapshot otherwise.
func (s State) Displayed() model.BedStatus {
	if s.Phase == Pending {
		return s.Target
	}
	return s.Snapshot
}

// Locked reports whether further Submits are rejected.
func (s State) Locked() bool { return s.Phase == Pending }

// Transition applies ev to s.  On error the returned state is the input
// state, except for ErrStaleResult on a late success, which still advances
// the confirmed snapshot.
func Transition(s State, ev Event) (State, error) {
	switch ev.Kind {
	case Submit:
		if s.Phase == Pending {
			return s, ErrEditLocked
		}
		s.Phase = Pending
		s.Seq++
		s.Target = ev.Target
		s.Err = nil
		return s, nil

	case Supersede:
		if s.Phase != Pending {
			return s, ErrNotPending
		}
		s.Seq++
		s.Target = ev.Target
		return s, nil

	case Succeed:
		confirmed := ev.Confirmed
		if confirmed == "" {
			confirmed = ev.Target
		}
		if s.Phase != Pending || ev.Seq != s.Seq {
			if ev.Seq > s.ConfirmedSeq && confirmed != "" {
				s.Snapshot = confirmed
				s.ConfirmedSeq = ev.Seq
			}
			return s, ErrStaleResult
		}
		s.Phase = Committed
		s.Snapshot = confirmed
		s.Target = confirmed
		s.ConfirmedSeq = ev.Seq
		s.Err = nil
		return s, nil

	case Fail:
		if s.Phase != Pending || ev.Seq != s.Seq {
			return s, ErrStaleResult
		}
		s.Phase = RolledBack
		s.Target = s.Snapshot
		s.Err = ev.Err
		return s, nil
	}
	return s, errors.New("unknown event")
}
