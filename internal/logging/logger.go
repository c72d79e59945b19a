package logging

import (
	"log/slog"
	"os"

	"gorm.io/gorm"
)

func stdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(stdoutHandler()))
}

// SetupWithDB adds the system_logs sink next to stdout once the database is up.
// The caller owns the returned handler and must Stop it on shutdown.
func SetupWithDB(db *gorm.DB) *PGHandler {
	pg := NewPGHandler(db)
	slog.SetDefault(slog.New(NewMultiHandler(stdoutHandler(), pg)))
	return pg
}
