// Package notifications keeps the user's recent push notifications in the
// session store and fans new ones out to in-process subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusbook/pkg/kafka"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"
	"campusbook/pkg/sanitizer"
	"campusbook/pkg/storage"
)

const (
	DefaultLimit = 50

	subscriberBuffer = 16
)

var ErrNotFound = errors.New("notification not found")

type Inbox struct {
	store storage.Store
	log   *logger.Logger
	limit int
	now   func() time.Time

	mu sync.Mutex // serialises read-modify-write of the stored list

	subMu  sync.RWMutex
	subs   map[int]chan model.Notification
	nextID int
}

type Option func(*Inbox)

func WithLimit(n int) Option {
	return func(i *Inbox) {
		if n > 0 {
			i.limit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Inbox) { i.now = now }
}

func NewInbox(store storage.Store, log *logger.Logger, opts ...Option) *Inbox {
	i := &Inbox{
		store: store,
		log:   log,
		limit: DefaultLimit,
		now:   time.Now,
		subs:  make(map[int]chan model.Notification),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// HandleMessage is the Kafka consumer entry point. Undecodable payloads are
// permanent failures; store errors are left for the consumer to retry.
func (i *Inbox) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var n model.Notification
	if err := msg.DecodeValue(&n); err != nil {
		return kafka.NewPermanentError("decode notification", err)
	}
	if n.ID == "" {
		n.ID = msg.GetEventID()
	}
	if n.Type == "" {
		n.Type = msg.GetEventType()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = msg.Timestamp
	}
	if sanitizer.SanitizeID(n.ID) == "" {
		return kafka.NewPermanentError("decode notification", fmt.Errorf("notification has no id"))
	}

	if _, err := i.Add(ctx, n); err != nil {
		return kafka.NewTransientError("store notification", err)
	}
	return nil
}

// Add records n unless a notification with the same ID is already stored.
// It reports whether n was new.
func (i *Inbox) Add(ctx context.Context, n model.Notification) (bool, error) {
	n.ID = sanitizer.SanitizeID(n.ID)
	n.Type = sanitizer.SanitizeEventType(n.Type)
	n.Title = sanitizer.SanitizeTitle(n.Title)
	n.Body = sanitizer.SanitizeBody(n.Body)
	n.BookingID = sanitizer.SanitizeID(n.BookingID)
	if n.ID == "" {
		return false, fmt.Errorf("notification id is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = i.now()
	}
	n.Read = false

	i.mu.Lock()
	list, err := i.load(ctx)
	if err != nil {
		i.mu.Unlock()
		return false, err
	}
	for _, existing := range list {
		if existing.ID == n.ID {
			i.mu.Unlock()
			return false, nil
		}
	}

	list = append([]model.Notification{n}, list...)
	if len(list) > i.limit {
		list = list[:i.limit]
	}
	err = i.save(ctx, list)
	i.mu.Unlock()
	if err != nil {
		return false, err
	}

	i.broadcast(n)
	return true, nil
}

// List returns a page of notifications, newest first, and the total held.
func (i *Inbox) List(ctx context.Context, limit int, offset int64) ([]model.Notification, int64, error) {
	i.mu.Lock()
	list, err := i.load(ctx)
	i.mu.Unlock()
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(list))
	if offset >= total {
		return []model.Notification{}, total, nil
	}
	end := offset + int64(limit)
	if limit <= 0 || end > total {
		end = total
	}
	return list[offset:end], total, nil
}

func (i *Inbox) UnreadCount(ctx context.Context) (int, error) {
	i.mu.Lock()
	list, err := i.load(ctx)
	i.mu.Unlock()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (i *Inbox) MarkRead(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	list, err := i.load(ctx)
	if err != nil {
		return err
	}
	for idx := range list {
		if list[idx].ID == id {
			if list[idx].Read {
				return nil
			}
			list[idx].Read = true
			return i.save(ctx, list)
		}
	}
	return ErrNotFound
}

// Subscribe returns a channel of newly added notifications. Slow subscribers
// miss notifications rather than block Add. cancel closes the channel.
func (i *Inbox) Subscribe() (<-chan model.Notification, func()) {
	ch := make(chan model.Notification, subscriberBuffer)

	i.subMu.Lock()
	id := i.nextID
	i.nextID++
	i.subs[id] = ch
	i.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			i.subMu.Lock()
			delete(i.subs, id)
			i.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (i *Inbox) broadcast(n model.Notification) {
	i.subMu.RLock()
	defer i.subMu.RUnlock()

	for _, ch := range i.subs {
		select {
		case ch <- n:
		default:
			i.log.Warn("Dropping notification for slow subscriber", "id", n.ID)
		}
	}
}

func (i *Inbox) load(ctx context.Context) ([]model.Notification, error) {
	raw, err := storage.GetOptional(ctx, i.store, storage.KeyNotifications)
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var list []model.Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		i.log.Warn("Discarding unreadable notification list", "error", err)
		return nil, nil
	}
	return list, nil
}

func (i *Inbox) save(ctx context.Context, list []model.Notification) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode notifications: %w", err)
	}
	if err := i.store.Set(ctx, storage.KeyNotifications, string(data)); err != nil {
		return fmt.Errorf("write notifications: %w", err)
	}
	return nil
}
