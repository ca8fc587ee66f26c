package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ward-bed-registry/internal/utils"
)

func TestFromToken(t *testing.T) {
	tok, err := utils.NewAccessToken("k", "sm-1", RoleStoreManager, time.Hour)
	require.NoError(t, err)

	s, err := FromToken("k", "Bearer "+tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "sm-1", s.StaffID)
	assert.True(t, s.Valid())
	assert.True(t, s.CanEdit())
	assert.Equal(t, "Bearer "+tok.Token, s.AuthHeader())

	_, err = FromToken("k", "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = FromToken("other", tok.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestCanEdit(t *testing.T) {
	for _, r := range AllRoles {
		s := Session{Token: "t", Role: r}
		want := r == RoleNurse || r == RoleWardHead || r == RoleStoreManager
		assert.Equal(t, want, s.CanEdit(), r)
	}
	assert.Empty(t, Session{}.AuthHeader())
}
