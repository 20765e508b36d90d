package log

import "go.uber.org/zap"

var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Uint     = zap.Uint
	Float    = zap.Float64
	Floats   = zap.Float64s
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
	Any      = zap.Any
)

// ErrorField is the zap.Error field under a name that doesn't clash with
// the package level Error function.
func ErrorField(err error) Field {
	return zap.Error(err)
}
