package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"fincms/internal/model"
	"fincms/internal/repository"
)

// RecentViewTracker maintains the bounded per-user recently-viewed set.
// It stores document ids only and never resolves them.
type RecentViewTracker struct {
	repo      repository.RecentViewRepository
	clock     clockwork.Clock
	maxRecent int
	log       *zap.Logger
}

// NewRecentViewTracker constructs a tracker that keeps at most
// opts.MaxRecentViews rows per user and timestamps views with opts.Clock.
func NewRecentViewTracker(repo repository.RecentViewRepository, opts Options, log *zap.Logger) *RecentViewTracker {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &RecentViewTracker{repo: repo, clock: opts.Clock, maxRecent: opts.MaxRecentViews, log: log}
}

// RecordView upserts the (user, document) row. Only a fresh insert can grow
// the user's set, so cleanup runs only on that path. A concurrent insert of
// the same pair is resolved by updating the row the other request created.
func (t *RecentViewTracker) RecordView(ctx context.Context, userID, documentID string) error {
	at := now(t.clock)

	existed, err := t.repo.Touch(ctx, userID, documentID, at)
	if err != nil {
		return fmt.Errorf("touch recent view: %w", err)
	}
	if existed {
		return nil
	}

	err = t.repo.Insert(ctx, model.RecentView{UserID: userID, DocumentID: documentID, ViewedAt: at})
	if errors.Is(err, repository.ErrDuplicate) {
		if _, err := t.repo.Touch(ctx, userID, documentID, at); err != nil {
			return fmt.Errorf("touch recent view after duplicate insert: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert recent view: %w", err)
	}

	removed, err := t.repo.Trim(ctx, userID, t.maxRecent)
	if err != nil {
		// The next insert retries the trim.
		t.log.Error("recent view cleanup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	if removed > 0 {
		recentViewEvictionsTotal.Add(float64(removed))
		t.log.Debug("recent views evicted",
			zap.String("user_id", userID),
			zap.Int64("removed", removed),
		)
	}
	return nil
}

// Recent returns up to limit views of userID, most recent first. The limit is
// capped at the per-user maximum.
func (t *RecentViewTracker) Recent(ctx context.Context, userID string, limit int) ([]model.RecentView, error) {
	if limit <= 0 || limit > t.maxRecent {
		limit = t.maxRecent
	}
	views, err := t.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent views: %w", err)
	}
	return views, nil
}
