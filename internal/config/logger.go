package config

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger.  Development environments get a
// human-readable console encoder; everything else logs JSON.  An unknown
// level name falls back to info.
func NewLogger(env, level string) (*zap.Logger, error) {
    var cfg zap.Config
    if env == "dev" || env == "development" {
        cfg = zap.NewDevelopmentConfig()
    } else {
        cfg = zap.NewProductionConfig()
    }
    lvl, err := zapcore.ParseLevel(level)
    if err != nil {
        lvl = zapcore.InfoLevel
    }
    cfg.Level = zap.NewAtomicLevelAt(lvl)
    return cfg.Build()
}
