package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/apperr"
	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// StoreClient is the HTTP client of the Bed Entity Store.  Requests are not
// retried: a registration that timed out may have committed, and the
// registry's refresh decides what happened.
type StoreClient struct {
	http    *resty.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStoreClient returns a client for the store at baseURL.
func NewStoreClient(baseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *StoreClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &StoreClient{http: c, logger: logger, metrics: m}
}

func (c *StoreClient) request(ctx context.Context, sess session.Session) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if h := sess.AuthHeader(); h != "" {
		r.SetHeader("Authorization", h)
	}
	return r
}

func (c *StoreClient) done(op string, start time.Time, err error) {
	c.metrics.ObserveUpstream("bedstore", op, outcome(err), time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("bed store call failed", zap.String("operation", op), zap.Error(err))
	}
}

// ListBeds fetches every bed, or the beds of one ward when wardID is set.
func (c *StoreClient) ListBeds(ctx context.Context, sess session.Session, wardID string) (beds []model.Bed, err error) {
	start := time.Now()
	defer func() { c.done("list_beds", start, err) }()

	r := c.request(ctx, sess)
	if wardID != "" {
		r.SetQueryParam("ward_id", wardID)
	}
	resp, err := r.Get("/beds")
	if err = classify(resp, err); err != nil {
		return nil, err
	}
	if err = json.Unmarshal(resp.Body(), &beds); err != nil {
		return nil, apperr.Malformed("bed list could not be decoded", err)
	}
	return beds, nil
}

// CreateBed registers bed and returns the stored record.
func (c *StoreClient) CreateBed(ctx context.Context, sess session.Session, bed model.Bed) (out model.Bed, err error) {
	start := time.Now()
	defer func() { c.done("create_bed", start, err) }()

	body := model.RegisterBedRequest{
		BedID:    bed.BedID,
		BedType:  string(bed.BedType),
		WardID:   bed.WardID,
		WardName: bed.WardName,
	}
	resp, err := c.request(ctx, sess).SetBody(body).Post("/bed")
	if err = classify(resp, err); err != nil {
		return model.Bed{}, err
	}
	if err = json.Unmarshal(resp.Body(), &out); err != nil || out.BedID == "" {
		return model.Bed{}, apperr.Malformed("created bed could not be decoded", err)
	}
	return out, nil
}

// UpdateStatus sets the status of bedID and returns the stored record.
func (c *StoreClient) UpdateStatus(ctx context.Context, sess session.Session, bedID string, status model.BedStatus) (out model.Bed, err error) {
	start := time.Now()
	defer func() { c.done("update_status", start, err) }()

	resp, err := c.request(ctx, sess).
		SetBody(model.StatusUpdateRequest{BedID: bedID, Status: status}).
		Put("/bed-status")
	if err = classify(resp, err); err != nil {
		return model.Bed{}, err
	}
	var payload struct {
		Bed model.Bed `json:"bed"`
	}
	if err = json.Unmarshal(resp.Body(), &payload); err != nil {
		return model.Bed{}, apperr.Malformed("status update response could not be decoded", err)
	}
	return payload.Bed, nil
}

// WardStatus fetches the store's occupancy summary of a ward.
func (c *StoreClient) WardStatus(ctx context.Context, sess session.Session, wardID string) (ws model.WardStatus, err error) {
	start := time.Now()
	defer func() { c.done("ward_status", start, err) }()

	resp, err := c.request(ctx, sess).SetPathParam("ward_id", wardID).Get("/ward-status/{ward_id}")
	if err = classify(resp, err); err != nil {
		return model.WardStatus{}, err
	}
	if err = json.Unmarshal(resp.Body(), &ws); err != nil {
		return model.WardStatus{}, apperr.Malformed("ward status could not be decoded", err)
	}
	return ws, nil
}
