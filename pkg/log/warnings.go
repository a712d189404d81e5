package log

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// EnableZerologWarnings routes errors.Warn through a zerolog logger writing
// JSON lines to w. Warnings implementing zerolog.LogObjectMarshaler are
// embedded field by field.
func EnableZerologWarnings(w io.Writer) {
	zl := zerolog.New(w).With().Timestamp().Str(ComponentKey, "warnings").Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		event := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event = event.EmbedObject(obj)
		}
		event.Msg(warning.Error())
	})
}

// DisableZerologWarnings restores the default warning handler.
func DisableZerologWarnings() {
	errors.SetZerologWarnFunc(nil)
}
