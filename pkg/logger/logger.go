package logger

import (
	"fmt"
	"log"
	"log/slog"
	"os"
)

// New returns a stdlib logger tagged with component. When base is set the
// output is forwarded to it at error level, which suits http.Server.ErrorLog.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		prefix := fmt.Sprintf("[%s] ", component)
		return log.New(os.Stdout, prefix, log.LstdFlags|log.Lshortfile)
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelError)
}
