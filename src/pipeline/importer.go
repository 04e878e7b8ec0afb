package pipeline

import (
	"context"
	"errors"

	"famfin-server/src/logger"
	"famfin-server/src/models"

	"github.com/google/uuid"
)

type SkippedRecord struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResult describes how far a batch got. When Import returns an error,
// Processed is the index of the record that failed.
type ImportResult struct {
	Processed  int                        `json:"processed"`
	Imported   int                        `json:"imported"`
	Duplicates int                        `json:"duplicates"`
	Skipped    []SkippedRecord            `json:"skipped,omitempty"`
	Created    []models.LedgerTransaction `json:"-"`
}

type Importer struct {
	gate   *Gate
	writer *Writer
}

func NewImporter(store LedgerStore) *Importer {
	return &Importer{
		gate:   NewGate(store),
		writer: NewWriter(store),
	}
}

// Import runs a batch through normalize, dedup and write in provider order.
// Malformed records are skipped. The first storage error stops the batch; the
// whole batch can be re-run safely.
func (im *Importer) Import(ctx context.Context, familyID uuid.UUID, account models.Account, batch []models.RawTransaction) (ImportResult, error) {
	log := logger.FromContext(ctx).With().
		Str("family_id", familyID.String()).
		Str("account_id", account.ID.String()).
		Str("provider", string(account.Provider)).
		Logger()

	var res ImportResult
	for i, raw := range batch {
		if err := ctx.Err(); err != nil {
			res.Processed = i
			return res, err
		}

		normalized, err := Normalize(raw, account.ProviderAccountID)
		if err != nil {
			var malformed *MalformedInputError
			if !errors.As(err, &malformed) {
				res.Processed = i
				return res, err
			}
			log.Warn().Err(err).Int("index", i).Msg("Skipping malformed transaction")
			res.Skipped = append(res.Skipped, SkippedRecord{Index: i, Reason: err.Error()})
			continue
		}

		verdict, err := im.gate.Check(ctx, account.ID, normalized.ExternalID)
		if err != nil {
			res.Processed = i
			return res, err
		}
		if verdict == VerdictExists {
			res.Duplicates++
			continue
		}

		created, err := im.writer.Write(ctx, normalized, account.ID, familyID)
		if err != nil {
			res.Processed = i
			return res, err
		}
		res.Imported++
		res.Created = append(res.Created, *created)
	}
	res.Processed = len(batch)

	log.Info().
		Int("imported", res.Imported).
		Int("duplicates", res.Duplicates).
		Int("skipped", len(res.Skipped)).
		Msg("Imported transaction batch")
	return res, nil
}
