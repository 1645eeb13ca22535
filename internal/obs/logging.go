// Package obs contains observability utilities such as logging and tracing.
package obs

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global structured logger used by the service.
var Logger = logrus.New()

// InitLogger configures the global Logger with a JSON formatter at the given level.
// Unknown levels fall back to info.
func InitLogger(level string) {
	Logger.Out = os.Stdout
	Logger.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}
