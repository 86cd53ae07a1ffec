package repository

import (
	"context"
	"iter"

	"github.com/shinyyama/swap-backend/internal/model"
)

const DefaultMessagePageSize = 100

// IterateMessages walks a conversation's log in order, fetching pageSize
// messages at a time. Each range over the returned sequence starts a fresh
// walk from the beginning of the log.
func IterateMessages(ctx context.Context, repo MessageRepository, convID string, pageSize int) iter.Seq2[model.Message, error] {
	if pageSize <= 0 {
		pageSize = DefaultMessagePageSize
	}
	return func(yield func(model.Message, error) bool) {
		var cursor *model.Message
		for {
			page, err := repo.ListPage(ctx, convID, cursor, pageSize)
			if err != nil {
				yield(model.Message{}, err)
				return
			}
			for _, msg := range page {
				if !yield(msg, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			last := page[len(page)-1]
			cursor = &last
		}
	}
}
