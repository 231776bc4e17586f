package index

import (
	"log/slog"

	"github.com/starford/graphlint/internal/models"
)

// Sync brings the index up to date with a lint run:
//   - new/changed documents (by checksum) are upserted with their links
//   - documents no longer discovered are deleted
//   - the finding set is replaced wholesale, since orphan and broken-link
//     findings depend on the whole tree
func Sync(db GraphIndex, docs []models.Document, findings []models.Finding, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		seen[d.Path] = struct{}{}
		if cs, ok := checksums[d.Path]; ok && d.Checksum != "" && cs == d.Checksum {
			continue
		}
		if err := db.UpsertDocument(d); err != nil {
			logger.Warn("sync: upsert failed", slog.String("path", d.Rel), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", d.Rel))
	}

	for p := range checksums {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	return db.ReplaceFindings(findings)
}
