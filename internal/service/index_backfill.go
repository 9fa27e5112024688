package service

import (
	"context"

	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
)

const backfillBatch = 200

// IndexBackfiller bulk-loads stored profiles into a search index.
type IndexBackfiller interface {
	BulkIndex(ctx context.Context, users []models.User) error
	MarkSynced()
}

// BackfillIndex writes every stored profile to index in id-ordered batches,
// then marks the index synced. Private profiles are written as well, so a
// later switch to public only has to update one document.
func BackfillIndex(ctx context.Context, users repository.UserRepository, skills repository.SkillRepository, index IndexBackfiller) (total int, err error) {
	ctx, end := observability.StartSpan(ctx, "search.Backfill")
	defer func() { end(err) }()

	var after uint
	for {
		batch, err := users.ListAfter(ctx, after, backfillBatch)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			break
		}
		ptrs := make([]*models.User, len(batch))
		for i := range batch {
			ptrs[i] = &batch[i]
		}
		if err := attachSkills(ctx, skills, ptrs); err != nil {
			return total, err
		}
		if err := index.BulkIndex(ctx, batch); err != nil {
			observability.SearchIndexErrors.Inc()
			return total, err
		}
		total += len(batch)
		after = batch[len(batch)-1].ID
	}

	index.MarkSynced()
	return total, nil
}
