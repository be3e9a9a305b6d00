// Package zerolog adapts a zerolog.Logger to rediset.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/rediset"
)

var _ rediset.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func (z Logger) Debug(msg string, f rediset.Fields) { z.emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f rediset.Fields)  { z.emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f rediset.Fields)  { z.emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f rediset.Fields) { z.emit(z.L.Error(), msg, f) }

// emit is a no-op for events below the logger level (zerolog returns nil).
func (z Logger) emit(e *zerolog.Event, msg string, f rediset.Fields) {
	if e == nil {
		return
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
