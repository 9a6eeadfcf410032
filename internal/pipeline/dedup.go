package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/minho/rnd-harvester/internal/db"
	"github.com/minho/rnd-harvester/internal/models"
)

// ContentHash is the deduplication identity of an announcement: a
// deterministic fingerprint of the announcing agency, title and URL.
func ContentHash(agency, title, url string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(agency)))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.TrimSpace(title)))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramStore is the slice of the database layer the dedup service needs.
type ProgramStore interface {
	GetProgramByContentHash(ctx context.Context, hash string) (*models.FundingProgram, error)
	CreateFundingProgram(ctx context.Context, p *models.FundingProgram) error
}

// Dedup links jobs to existing funding programs by content hash.
type Dedup struct {
	store ProgramStore
}

func NewDedup(store ProgramStore) *Dedup {
	return &Dedup{store: store}
}

// LinkOrCreate returns the program for p's content hash, creating it when
// absent. created reports whether this call inserted the row.
//
// The check and the insert are two statements, so two workers racing on jobs
// for the same announcement can both pass the check; the UNIQUE constraint on
// content_hash then fails the slower insert, and the loser re-reads and links
// the winner's row. No duplicate can persist either way.
func (d *Dedup) LinkOrCreate(ctx context.Context, p *models.FundingProgram) (*models.FundingProgram, bool, error) {
	existing, err := d.store.GetProgramByContentHash(ctx, p.ContentHash)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}

	err = d.store.CreateFundingProgram(ctx, p)
	if err == nil {
		return p, true, nil
	}
	if errors.Is(err, db.ErrDuplicateHash) {
		existing, rerr := d.store.GetProgramByContentHash(ctx, p.ContentHash)
		if rerr != nil {
			return nil, false, fmt.Errorf("dedup re-read after collision: %w", rerr)
		}
		return existing, false, nil
	}
	return nil, false, err
}
