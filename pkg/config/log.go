package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NamedLogger creates a logger writing to stderr at info level.
// Each entry is prefixed with the logger name.
func NamedLogger(name string) *logrus.Logger {
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &NamedTextFormatter{
			Name: name,
			TextFormatter: logrus.TextFormatter{
				FullTimestamp: true,
			},
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
}

// NamedTextFormatter prefixes messages with the logger name
type NamedTextFormatter struct {
	logrus.TextFormatter
	Name string
}

// Format renders a single log entry
func (f *NamedTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if f.Name != "" {
		entry.Message = fmt.Sprintf("[%-8s] %s", f.Name, entry.Message)
	}
	return f.TextFormatter.Format(entry)
}

// ParseLevel converts a level name into a logrus level
func ParseLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return lvl, fmt.Errorf("invalid logging.level: %w", err)
	}
	return lvl, nil
}

// ConfigureLogger sets the level of log from the configuration
func ConfigureLogger(log *logrus.Logger, cfg *Config) error {
	lvl, err := ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}
