package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// pinnedLevelCore replaces the level check of the core it wraps,
// so messages at or above level are written whatever the global level is.
type pinnedLevelCore struct {
	zapcore.Core

	level zapcore.Level
}

// Enabled ignores the wrapped core's enabler.
func (c *pinnedLevelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check registers the core for entries at or above the pinned level.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *pinnedLevelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the pinned level on derived cores.
//
//nolint:ireturn,nolintlint // zapcore.Core is the zap contract.
func (c *pinnedLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &pinnedLevelCore{Core: c.Core.With(fields), level: c.level}
}

// WithLevel pins the minimum level of a derived logger.
//
//nolint:ireturn,nolintlint // zap.Option is the zap contract.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &pinnedLevelCore{Core: core, level: lvl}
	})
}

// Pinned returns ctx with a logger that writes messages at lvl and above
// even when the global level is higher.
func Pinned(ctx context.Context, lvl zapcore.Level) context.Context {
	return ToContext(ctx, FromContext(ctx).WithOptions(WithLevel(lvl)))
}
