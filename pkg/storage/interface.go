// Package storage defines where probe results end up. The only backend is
// flat files (see package flatfile), but the command depends on this
// interface so tests can substitute their own writer.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import (
	"context"
	"webprobe/pkg/domain"
)

// ResultWriter persists a ResultSet.
type ResultWriter interface {
	// Write persists every Found entry of rs. Absent entries are skipped.
	Write(ctx context.Context, rs domain.ResultSet) error
	// Paths lists the locations Write stores results at, for the final summary.
	Paths() []string
}
