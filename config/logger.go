package config

import (
	"github.com/sirupsen/logrus"
)

// NewLogger builds the application logger. Unknown levels fall back to
// info.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   c.ColoredLogs,
		DisableColors: !c.ColoredLogs,
		FullTimestamp: true,
	})
	return logger
}
