// Package log carries a logrus entry on the context so every stage of a
// submission logs with the same correlation fields.
package log

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatSimple   = "simple"
	FormatText     = "text"
	FormatDetailed = "detailed"
	FormatJSON     = "json"

	OutputStderr = "stderr"
	OutputStdout = "stdout"
	OutputFile   = "file"

	DefaultTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

	maxFieldLength = 61
)

var (
	rootLogger = logrus.NewEntry(logrus.StandardLogger())

	// L accesses the current logger from the context
	L = loggerFromContext

	initAtLeastOnce atomic.Bool
)

type ctxLogKey struct{}

// Config selects level, format and destination of the process logs.
type Config struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
	Output string `env:"OUTPUT" envDefault:"stderr"`

	// File is the log file path when Output is "file".
	File       string `env:"FILE" envDefault:"intake.log"`
	MaxSizeMB  int    `env:"FILE_MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"FILE_MAX_BACKUPS" envDefault:"2"`
	MaxAgeDays int    `env:"FILE_MAX_AGE_DAYS" envDefault:"7"`

	DisableColor bool `env:"DISABLE_COLOR"`
	UTC          bool `env:"UTC" envDefault:"true"`
}

func InitConfig(conf Config) {
	initAtLeastOnce.Store(true) // must store before SetLevel

	SetLevel(conf.Level)

	switch conf.Output {
	case OutputFile:
		filename := conf.File
		if filename == "" {
			filename = "intake.log"
		}
		rootLogger.Infof("Logs diverted to %s", filename)
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   filename,
			MaxSize:    conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAgeDays,
		})
	case OutputStdout:
		logrus.SetOutput(os.Stdout)
	default:
		logrus.SetOutput(os.Stderr)
	}

	setFormatting(conf.Format, conf.DisableColor, conf.UTC)
}

func IsDebugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}

func EnsureInit() {
	if !initAtLeastOnce.Load() {
		InitConfig(Config{Format: FormatText, UTC: true})
	}
}

// WithLogger adds the specified logger to the context
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	EnsureInit()
	return context.WithValue(ctx, ctxLogKey{}, logger)
}

// WithLogField adds the specified field to the logger in the context.
// Long values are truncated.
func WithLogField(ctx context.Context, key, value string) context.Context {
	EnsureInit()
	if len(value) > maxFieldLength {
		value = value[0:maxFieldLength] + "..."
	}
	return WithLogger(ctx, loggerFromContext(ctx).WithField(key, value))
}

func loggerFromContext(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(ctxLogKey{})
	if logger == nil {
		return rootLogger
	}
	return logger.(*logrus.Entry)
}

func GetLevel() string {
	switch logrus.GetLevel() {
	case logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warn"
	case logrus.DebugLevel:
		return "debug"
	case logrus.TraceLevel:
		return "trace"
	default:
		return "info"
	}
}

func SetLevel(level string) {
	var l logrus.Level
	switch strings.ToLower(level) {
	case "error":
		l = logrus.ErrorLevel
	case "warn", "warning":
		l = logrus.WarnLevel
	case "debug":
		l = logrus.DebugLevel
	case "trace":
		l = logrus.TraceLevel
	default:
		l = logrus.InfoLevel
	}
	logrus.SetLevel(l)
}

type utcFormat struct {
	f logrus.Formatter
}

func (utc *utcFormat) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return utc.f.Format(e)
}

func setFormatting(format string, disableColor, utc bool) {
	logrus.SetReportCaller(false)

	var formatter logrus.Formatter
	switch format {
	case FormatJSON:
		formatter = &logrus.JSONFormatter{TimestampFormat: DefaultTimestampFormat}
	case FormatDetailed:
		formatter = &logrus.TextFormatter{
			DisableColors:   disableColor,
			TimestampFormat: DefaultTimestampFormat,
			FullTimestamp:   true,
		}
		logrus.SetReportCaller(true)
	case FormatSimple:
		formatter = &prefixed.TextFormatter{
			DisableColors:   disableColor,
			TimestampFormat: DefaultTimestampFormat,
			ForceFormatting: true,
			FullTimestamp:   true,
		}
	default:
		formatter = &logrus.TextFormatter{
			DisableColors:   disableColor,
			TimestampFormat: DefaultTimestampFormat,
			FullTimestamp:   true,
		}
	}
	if utc {
		formatter = &utcFormat{f: formatter}
	}
	logrus.SetFormatter(formatter)
}
