package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// Inbox is the newest-first notification list, persisted to the local
// cache after every change.
type Inbox struct {
	mu     sync.Mutex
	items  []Notification
	cache  localstate.Cache
	logger *logging.Logger
}

func NewInbox(cache localstate.Cache, logger *logging.Logger) *Inbox {
	if cache == nil {
		cache = localstate.NewMemoryCache()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Inbox{cache: cache, logger: logger}
}

// Load restores persisted notifications.
func (in *Inbox) Load(ctx context.Context) {
	raw, ok, err := in.cache.Get(ctx, localstate.KeyNotifications)
	if err != nil || !ok {
		if err != nil {
			in.logger.Warn("notification cache read failed", "error", err)
		}
		return
	}
	var items []Notification
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		in.logger.Warn("notification cache is corrupt", "error", err)
		return
	}
	in.mu.Lock()
	in.items = items
	in.mu.Unlock()
}

// Push prepends ns in the given order, so ns[0] ends up first.
func (in *Inbox) Push(ctx context.Context, ns ...Notification) {
	if len(ns) == 0 {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	next := make([]Notification, 0, len(ns)+len(in.items))
	next = append(next, ns...)
	next = append(next, in.items...)
	in.items = next
	in.persistLocked(ctx)
}

// MarkRead flags the notification with id as read. It reports whether one
// was found.
func (in *Inbox) MarkRead(ctx context.Context, id string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		if in.items[i].ID != id {
			continue
		}
		if !in.items[i].Read {
			next := make([]Notification, len(in.items))
			copy(next, in.items)
			next[i].Read = true
			in.items = next
			in.persistLocked(ctx)
		}
		return true
	}
	return false
}

// All returns every notification, newest first.
func (in *Inbox) All() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Notification, len(in.items))
	copy(out, in.items)
	return out
}

// Unread counts unread notifications.
func (in *Inbox) Unread() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := 0
	for _, item := range in.items {
		if !item.Read {
			n++
		}
	}
	return n
}

func (in *Inbox) persistLocked(ctx context.Context) {
	data, err := json.Marshal(in.items)
	if err != nil {
		in.logger.Warn("notification encode failed", "error", err)
		return
	}
	if err := in.cache.Set(ctx, localstate.KeyNotifications, string(data)); err != nil {
		in.logger.Warn("notification cache write failed", "error", err)
	}
}
