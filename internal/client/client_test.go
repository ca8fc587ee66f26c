package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

var sess = session.Session{Token: "tok", StaffID: "n-1", Role: session.RoleNurse}

func TestStoreClientListBedsSendsSessionAndWard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/beds", r.URL.Path)
		assert.Equal(t, "WARD-A", r.URL.Query().Get("ward_id"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]model.Bed{{BedID: "A-1", WardID: "WARD-A", Status: model.StatusFunctional}})
	}))
	defer srv.Close()

	c := NewStoreClient(srv.URL, time.Second, nil, nil)
	beds, err := c.ListBeds(context.Background(), sess, "WARD-A")
	require.NoError(t, err)
	require.Len(t, beds, 1)
	assert.Equal(t, "A-1", beds[0].BedID)
}

func TestStoreClientMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   apperr.Kind
		msg    string
	}{
		{http.StatusBadRequest, `{"error":"bed_id is required"}`, apperr.KindValidation, "bed_id is required"},
		{http.StatusConflict, `{"error":"bed id B-7 already exists"}`, apperr.KindDuplicate, "bed id B-7 already exists"},
		{http.StatusNotFound, `{"error":"bed not found"}`, apperr.KindNotFound, "bed not found"},
		{http.StatusInternalServerError, `boom`, apperr.KindServer, "boom"},
		{http.StatusBadGateway, ``, apperr.KindServer, ""},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		c := NewStoreClient(srv.URL, time.Second, nil, nil)
		_, err := c.CreateBed(context.Background(), sess, model.Bed{BedID: "B-7", WardID: "WARD-B"})
		srv.Close()

		e, ok := apperr.As(err)
		require.True(t, ok, "status %d", tc.status)
		assert.Equal(t, tc.kind, e.Kind, "status %d", tc.status)
		assert.Equal(t, tc.msg, e.Message, "status %d", tc.status)
	}
}

func TestStoreClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewStoreClient(url, 200*time.Millisecond, nil, nil)
	_, err := c.ListBeds(context.Background(), sess, "")
	assert.True(t, apperr.Is(err, apperr.KindUnreachable))
}

func TestStoreClientTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewStoreClient(srv.URL, 50*time.Millisecond, nil, nil)
	_, err := c.UpdateStatus(context.Background(), sess, "A-1", model.StatusBroken)
	assert.True(t, apperr.Is(err, apperr.KindUnreachable))
}

func TestStoreClientUpdateStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body model.StatusUpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A-1", body.BedID)
		assert.Equal(t, model.StatusBroken, body.Status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "status updated",
			"bed":     model.Bed{BedID: "A-1", WardID: "WARD-A", Status: model.StatusBroken},
		})
	}))
	defer srv.Close()

	c := NewStoreClient(srv.URL, time.Second, nil, nil)
	bed, err := c.UpdateStatus(context.Background(), sess, "A-1", model.StatusBroken)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBroken, bed.Status)
}

func TestStoreClientWardStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ward-status/GEN", r.URL.Path)
		_ = json.NewEncoder(w).Encode(model.NewWardStatus("GEN", 10, 7, 2))
	}))
	defer srv.Close()

	c := NewStoreClient(srv.URL, time.Second, nil, nil)
	ws, err := c.WardStatus(context.Background(), sess, "GEN")
	require.NoError(t, err)
	assert.Equal(t, 3, ws.Available)
	assert.Equal(t, 2, ws.ActiveSurge)
}

const validPlan = `{
  "predicted_arrivals": 20,
  "primary_driver": "Heatwave",
  "system_status": "CRITICAL",
  "occupancy_percentage": 91,
  "confidence_score": "High",
  "action_plan_transfers": {"ward_a": 5, "ward_b": 3, "general": 4},
  "action_plan_surge_breakdown": {"ward_a": 2, "general": 1},
  "action_plan_surge": 3
}`

func TestForecastClientFetchPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		_, _ = w.Write([]byte(validPlan))
	}))
	defer srv.Close()

	c := NewForecastClient(srv.URL, time.Second, 0, nil, nil)
	p, err := c.FetchPlan(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 20, *p.PredictedArrivals)
	v, ok := p.Transfers.For(model.PlanKeyWardA)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestForecastClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(validPlan))
	}))
	defer srv.Close()

	c := NewForecastClient(srv.URL, time.Second, 2, nil, nil)
	_, err := c.FetchPlan(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestForecastClientMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predicted_arrivals": 4}`))
	}))
	defer srv.Close()

	c := NewForecastClient(srv.URL, time.Second, 0, nil, nil)
	_, err := c.FetchPlan(context.Background(), sess)
	assert.True(t, apperr.Is(err, apperr.KindMalformed))
}
