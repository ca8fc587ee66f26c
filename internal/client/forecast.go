package client

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/ward-bed-registry/internal/metrics"
	"github.com/iliyamo/ward-bed-registry/internal/model"
	"github.com/iliyamo/ward-bed-registry/internal/session"
)

// ForecastClient fetches the allocation plan from the forecasting service.
// GET /predict is read-only, so transport failures and 5xx answers are
// retried.
type ForecastClient struct {
	http    *resty.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewForecastClient returns a client for the forecasting service at baseURL.
func NewForecastClient(baseURL string, timeout time.Duration, retries int, logger *zap.Logger, m *metrics.Metrics) *ForecastClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json")
	return &ForecastClient{http: c, logger: logger, metrics: m}
}

// FetchPlan downloads and validates the current plan.  A document that
// fails the schema is a malformed error; it is never partially applied.
func (c *ForecastClient) FetchPlan(ctx context.Context, sess session.Session) (p *model.AllocationPlan, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream("forecast", "predict", outcome(err), time.Since(start).Seconds())
		if err != nil {
			c.logger.Warn("forecast fetch failed", zap.Error(err))
		}
	}()

	r := c.http.R().SetContext(ctx)
	if h := sess.AuthHeader(); h != "" {
		r.SetHeader("Authorization", h)
	}
	resp, err := r.Get("/predict")
	if err = classify(resp, err); err != nil {
		return nil, err
	}
	p, err = model.DecodePlan(resp.Body())
	if err != nil {
		return nil, err
	}
	if len(p.Flags) > 0 {
		c.logger.Info("plan has missing optional fields", zap.Strings("flags", p.Flags))
	}
	return p, nil
}
