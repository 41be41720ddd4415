package events

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/snapbuy/pkg/logging"
)

const asyncPublishTimeout = 5 * time.Second

// Async publishes in the background. Failures are logged and never reach the caller.
type Async struct {
	next Publisher
	wg   sync.WaitGroup
}

func NewAsync(next Publisher) *Async {
	return &Async{next: next}
}

func (a *Async) PublishEvent(ctx context.Context, topic, key string, event any) error {
	l := logging.FromContext(ctx)
	bg := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(bg, asyncPublishTimeout)
		defer cancel()
		if err := a.next.PublishEvent(ctx, topic, key, event); err != nil {
			l.Error("event_publish_failed", "topic", topic, "key", key, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight publish has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
