package app

import (
	"context"
	"time"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/events"
)

// WriteQueue serializes persistence writes from async bus events.
type WriteQueue interface {
	Enqueue(name string, fn func(context.Context) error)
}

type TranscriptWriter interface {
	Insert(ctx context.Context, sessionStarted time.Time, entry domain.LogEntry) (int64, error)
}

// StartTranscriptProjection persists every console line published on the bus.
func StartTranscriptProjection(ctx context.Context, b bus.MessageBus, queue WriteQueue, repo TranscriptWriter, sessionStarted time.Time) {
	logSub := b.Subscribe(events.TopicConsoleLog)

	go func() {
		defer b.Unsubscribe(logSub, events.TopicConsoleLog)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-logSub:
				if !ok {
					return
				}
				appended, ok := raw.(events.LogAppended)
				if !ok {
					continue
				}
				entry := appended.Entry
				queue.Enqueue("insert_transcript", func(writeCtx context.Context) error {
					_, err := repo.Insert(writeCtx, sessionStarted, entry)
					return err
				})
			}
		}
	}()
}
