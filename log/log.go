package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xeptore/ytmdl/config"
	"github.com/xeptore/ytmdl/constant"
)

func New(w io.Writer, conf config.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(conf.Level)
	if nil != err {
		return zerolog.Nop(), fmt.Errorf("invalid logging level %q: %v", conf.Level, err)
	}

	switch strings.ToLower(conf.Format) {
	case "json":
	case "pretty":
		w = zerolog.ConsoleWriter{ //nolint:exhaustruct
			Out:          w,
			TimeFormat:   time.RFC3339,
			TimeLocation: time.UTC,
		}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid logging format: %s", conf.Format)
	}

	return zerolog.
		New(w).
		Hook(&stackHook{}).
		With().
		Timestamp().
		Str("version", constant.Version).
		Logger().
		Level(level), nil
}

// FromConfig expects a validated config and panics otherwise.
func FromConfig(conf config.Log) zerolog.Logger {
	logger, err := New(os.Stderr, conf)
	if nil != err {
		panic(err.Error())
	}

	return logger
}

func NewDefault() zerolog.Logger {
	return FromConfig(config.Log{Level: "info", Format: "pretty"})
}
