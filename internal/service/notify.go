package service

import (
	"context"
	"sync"

	"github.com/templui/fitsync/internal/model"
)

// Notifier is told after every successful mutation.
type Notifier interface {
	Changed(ctx context.Context, s *model.Session)
}

type NotifierFunc func(ctx context.Context, s *model.Session)

func (f NotifierFunc) Changed(ctx context.Context, s *model.Session) { f(ctx, s) }

// Broadcast fans a change out to every registered notifier, in order.
// Notifiers can be added after services were built with it.
type Broadcast struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

func (b *Broadcast) Add(n ...Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifiers = append(b.notifiers, n...)
}

func (b *Broadcast) Changed(ctx context.Context, s *model.Session) {
	b.mu.RLock()
	notifiers := append([]Notifier(nil), b.notifiers...)
	b.mu.RUnlock()

	for _, n := range notifiers {
		n.Changed(ctx, s)
	}
}

type nopNotifier struct{}

func (nopNotifier) Changed(context.Context, *model.Session) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
