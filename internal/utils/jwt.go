package utils // package utils provides helpers for signing and verifying staff access tokens

import (
    "errors" // errors for sentinel definitions
    "fmt"    // fmt wraps parse failures
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned when a token cannot be parsed, is signed with
// an unexpected method or lacks the subject/role claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Claims are the identity claims carried by a staff access token.
type Claims struct {
    StaffID string    // sub claim
    Role    string    // role claim
    Exp     time.Time // exp claim
}

// NewAccessToken builds and signs an HS256 JWT for a staff member.  The JWT
// includes the standard claims: subject (sub), role, expiration (exp) and
// issued at (iat).
func NewAccessToken(secret, staffID, role string, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  staffID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and extracts its claims.
// Only HMAC signatures are accepted.  Expired tokens are rejected by the
// jwt library's claim validation.
func ParseAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    sub, _ := mc["sub"].(string)
    role, _ := mc["role"].(string)
    if sub == "" || role == "" {
        return Claims{}, ErrInvalidToken
    }
    out := Claims{StaffID: sub, Role: role}
    if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
        out.Exp = exp.Time
    }
    return out, nil
}
