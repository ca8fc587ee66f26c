// Package client talks to the Bed Entity Store and the forecasting service.
// Every failure is returned as an *apperr.Error so callers never inspect
// transport details.
package client

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
)

// classify maps a resty result onto the error taxonomy.  It returns nil for
// 2xx answers.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		return apperr.Unreachable(err)
	}
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	msg := serverMessage(resp.Body())
	switch {
	case status == http.StatusConflict:
		return apperr.Duplicate(msg)
	case status == http.StatusNotFound:
		return apperr.NotFound(msg)
	case status >= 500:
		return apperr.Server(status, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e := apperr.Server(status, msg)
		if e.Message == "" {
			e.Message = "not authorized"
		}
		return e
	default:
		e := apperr.Validation("", msg)
		e.Status = status
		return e
	}
}

// serverMessage extracts the "error" (or "message") field of a JSON error
// body.  Plain text bodies are returned trimmed.
func serverMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		return payload.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
