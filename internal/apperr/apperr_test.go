package apperr

import (
    "errors"
    "fmt"
    "net/http"
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
    assert.Equal(t, "bed_id: is required", Validation("bed_id", "is required").UserMessage())
    assert.Equal(t, "bed id A-1 already exists", Duplicate("bed id A-1 already exists").UserMessage())
    assert.Equal(t, "service unavailable, try again", Unreachable(errors.New("dial tcp")).UserMessage())
    assert.Equal(t, "something went wrong, try again", Server(500, "").UserMessage())
}

func TestHTTPStatus(t *testing.T) {
    cases := map[*Error]int{
        Validation("x", "bad"):     http.StatusBadRequest,
        Duplicate(""):              http.StatusConflict,
        NotFound(""):               http.StatusNotFound,
        Unreachable(nil):           http.StatusServiceUnavailable,
        Server(503, "down"):        http.StatusBadGateway,
        Malformed("bad json", nil): http.StatusBadGateway,
    }
    for e, want := range cases {
        assert.Equal(t, want, e.HTTPStatus(), e.Error())
    }
}

func TestKindThroughWrapping(t *testing.T) {
    cause := errors.New("connection refused")
    err := fmt.Errorf("refresh: %w", Unreachable(cause))

    assert.Equal(t, KindUnreachable, KindOf(err))
    assert.True(t, Is(err, KindUnreachable))
    assert.False(t, Is(nil, KindUnreachable))
    assert.ErrorIs(t, err, cause)

    e, ok := As(err)
    assert.True(t, ok)
    assert.Contains(t, e.Error(), "connection refused")

    assert.Equal(t, Kind(""), KindOf(cause))
}
