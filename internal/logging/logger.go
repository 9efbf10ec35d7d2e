package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a JSON slog logger on stdout. Development builds log at debug
// level so failed target lookups are visible.
func Setup(appEnv string) {
	slog.SetDefault(slog.New(NewStdoutHandler(os.Stdout, appEnv)))
}

func NewStdoutHandler(w io.Writer, appEnv string) slog.Handler {
	level := slog.LevelInfo
	if appEnv == "development" {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
