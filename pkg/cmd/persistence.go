// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/persistence/file"
	"github.com/fieldline/automation/pkg/persistence/memory"
	"github.com/fieldline/automation/pkg/persistence/sqlite"
)

// NewPersistence picks a backend from the database URL scheme. Unknown
// schemes fall back to file storage rooted at the URL path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case databaseURL == "memory://":
		return memory.NewPersistence()
	case strings.HasPrefix(databaseURL, "sqlite://"):
		p, err := sqlite.NewPersistence(strings.TrimPrefix(databaseURL, "sqlite://"))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to open sqlite database", "error", err)
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}
