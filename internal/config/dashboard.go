package config

import (
    "time"
)

// DashboardConfig holds the runtime configuration of the ward dashboard
// service, which embeds the registry, the optimistic controller and the
// allocation plan consumer.
type DashboardConfig struct {
    Env             string
    Port            string
    JWTSecret       string
    LogLevel        string
    BedStoreURL     string        // base URL of the bed store
    ForecastURL     string        // base URL of the forecasting service
    RequestTimeout  time.Duration // bound on every outbound round trip
    PlanMaxAge      time.Duration // age after which a view refetches the plan
    ForecastRetries int           // retries for GET /predict
    TokenTTL        time.Duration // lifetime of tokens minted by the dev token command
}

// LoadDashboard reads the dashboard configuration.
func LoadDashboard() DashboardConfig {
    cfg := DashboardConfig{
        Env:             must("APP_ENV"),
        Port:            envStr("DASHBOARD_PORT", "8090"),
        JWTSecret:       must("JWT_SECRET"),
        LogLevel:        envStr("LOG_LEVEL", "info"),
        BedStoreURL:     envStr("BED_STORE_URL", "http://localhost:8080"),
        ForecastURL:     envStr("FORECAST_URL", "http://localhost:5001"),
        RequestTimeout:  envDur("REQUEST_TIMEOUT", 5*time.Second),
        PlanMaxAge:      envDur("PLAN_MAX_AGE", time.Minute),
        ForecastRetries: envInt("FORECAST_RETRIES", 2),
        TokenTTL:        time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
    }
    if cfg.RequestTimeout <= 0 {
        cfg.RequestTimeout = 5 * time.Second
    }
    if cfg.ForecastRetries < 0 {
        cfg.ForecastRetries = 0
    }
    return cfg
}
