package importer

import (
	"context"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// Creator saves one URL.
type Creator interface {
	Create(ctx context.Context, rawURL string) (*domain.Bookmark, error)
}

// Failure is an entry the backend refused.
type Failure struct {
	Entry Entry
	Err   error
}

// Report summarizes an import.
type Report struct {
	Created []domain.Bookmark
	Failed  []Failure
}

// Import creates every entry in order. A failed entry does not stop the
// import; a canceled ctx does.
func Import(ctx context.Context, c Creator, entries []Entry, log logger.Logger) (Report, error) {
	var r Report
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return r, err
		}

		b, err := c.Create(ctx, e.URL)
		if err != nil {
			log.Warn("failed to import bookmark",
				logger.String("name", e.Name),
				logger.String("url", e.URL),
				logger.Error(err))
			r.Failed = append(r.Failed, Failure{Entry: e, Err: err})
			continue
		}
		if b != nil {
			r.Created = append(r.Created, *b)
		}
	}

	log.Info("import finished",
		logger.Int("created", len(r.Created)),
		logger.Int("failed", len(r.Failed)))
	return r, nil
}
