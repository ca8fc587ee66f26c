// Package session carries the caller's identity explicitly into every
// module that talks to the bed store or the forecasting service.  Nothing in
// this repository reads credentials from process-wide state; a Session is
// built at the edge (HTTP middleware, CLI flag) and passed down.
package session

import (
	"errors"
	"strings"

	"github.com/iliyamo/ward-bed-registry/internal/utils"
)

// Staff roles recognised by both services.
const (
	RoleNurse               = "NURSE"
	RoleDoctor              = "DOCTOR"
	RoleWardHead            = "WARD_HEAD"
	RoleStoreManager        = "STORE_MANAGER"
	RoleSurveillanceOfficer = "SURVEILLANCE_OFFICER"
)

// EditorRoles may register beds and change their status.
var EditorRoles = []string{RoleNurse, RoleWardHead, RoleStoreManager}

// AllRoles may read inventory and ward views.
var AllRoles = []string{RoleNurse, RoleDoctor, RoleWardHead, RoleStoreManager, RoleSurveillanceOfficer}

// ErrNoSession is returned when a call requires a session and none is given.
var ErrNoSession = errors.New("no session")

// Session is an authenticated staff identity plus the bearer token that
// proves it to downstream services.
type Session struct {
	Token   string
	StaffID string
	Role    string
}

// FromToken verifies raw with secret and builds a Session from its claims.
func FromToken(secret, raw string) (Session, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return Session{}, ErrNoSession
	}
	c, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: raw, StaffID: c.StaffID, Role: c.Role}, nil
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool { return s.Token != "" }

// AuthHeader returns the Authorization header value for outbound calls.
func (s Session) AuthHeader() string {
	if s.Token == "" {
		return ""
	}
	return "Bearer " + s.Token
}

// CanEdit reports whether the session's role may mutate beds.
func (s Session) CanEdit() bool {
	for _, r := range EditorRoles {
		if s.Role == r {
			return true
		}
	}
	return false
}
