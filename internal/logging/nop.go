package logging

import "context"

// NopLogger discards everything. Useful in tests and as a safe default.
type NopLogger struct{}

// NewNop returns a Logger that discards all records.
func NewNop() Logger { return NopLogger{} }

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Warn(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}
func (n NopLogger) With(...any) Logger                  { return n }
