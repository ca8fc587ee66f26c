package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", "wh-7", "WARD_HEAD", 30*time.Minute)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.Exp, 5*time.Second)

    c, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, "wh-7", c.StaffID)
    assert.Equal(t, "WARD_HEAD", c.Role)
    assert.Equal(t, tok.Exp.Unix(), c.Exp.Unix())
}

func TestParseAccessTokenRejects(t *testing.T) {
    expired, err := NewAccessToken("s3cret", "n-1", "NURSE", -time.Minute)
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", expired.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    good, err := NewAccessToken("s3cret", "n-1", "NURSE", time.Minute)
    require.NoError(t, err)
    _, err = ParseAccessToken("wrong", good.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub": "n-1",
        "exp": time.Now().Add(time.Minute).Unix(),
    })
    raw, err := noRole.SignedString([]byte("s3cret"))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", raw)
    assert.ErrorIs(t, err, ErrInvalidToken)

    _, err = ParseAccessToken("s3cret", "not.a.jwt")
    assert.ErrorIs(t, err, ErrInvalidToken)
}
