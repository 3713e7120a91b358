// Package importer seeds an identity's bookmarks from a Homepage
// bookmarks.yaml file.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/sources/homepage"
)

// Result counts what one import did.
type Result struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
}

// Importer upserts drafts by URL into one identity's bookmarks.
type Importer struct {
	store  domain.BookmarkStore
	logger logger.Logger
}

func New(store domain.BookmarkStore, log logger.Logger) *Importer {
	return &Importer{store: store, logger: log}
}

// ImportFile loads path and imports its bookmarks for userID.
func (im *Importer) ImportFile(ctx context.Context, path, userID string) (Result, error) {
	config, err := homepage.NewLoader(path).Load()
	if err != nil {
		return Result{}, err
	}
	drafts, err := homepage.Drafts(config)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return im.Import(ctx, userID, drafts)
}

// Import upserts drafts for userID. A URL the identity does not own yet is
// inserted, a known URL under another title is renamed, and anything else is
// skipped. Failed rows are logged and reported together; the others still go
// through.
func (im *Importer) Import(ctx context.Context, userID string, drafts []domain.Draft) (Result, error) {
	existing, err := im.store.ListBookmarks(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("list bookmarks: %w", err)
	}
	byURL := make(map[string]domain.Bookmark, len(existing))
	for _, b := range existing {
		if _, ok := byURL[b.URL]; !ok {
			byURL[b.URL] = b
		}
	}

	var (
		res  Result
		errs []error
	)
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !d.Complete() {
			res.Skipped++
			continue
		}
		nb := d.ToNewBookmark(userID)
		if !domain.IsWebURL(nb.URL) {
			im.logger.Warn("import: unsupported link skipped", logger.String("url", nb.URL))
			res.Skipped++
			continue
		}

		cur, ok := byURL[nb.URL]
		switch {
		case ok && cur.Title == nb.Title:
			res.Skipped++

		case ok:
			cur.Title = nb.Title
			updated, err := im.store.UpdateBookmark(ctx, cur)
			if err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("update %s: %w", nb.URL, err))
				im.logger.Warn("import: update failed", logger.String("url", nb.URL), logger.Error(err))
				continue
			}
			byURL[nb.URL] = updated
			res.Updated++

		default:
			inserted, err := im.store.InsertBookmark(ctx, nb)
			if err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("insert %s: %w", nb.URL, err))
				im.logger.Warn("import: insert failed", logger.String("url", nb.URL), logger.Error(err))
				continue
			}
			byURL[nb.URL] = inserted
			res.Inserted++
		}
	}

	im.logger.Info("import finished",
		logger.String("user_id", userID),
		logger.Int("inserted", res.Inserted),
		logger.Int("updated", res.Updated),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed))

	return res, errors.Join(errs...)
}
