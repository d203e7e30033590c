package views

import (
	"context"
	"fmt"
	"sync"

	"tritonhub/errs"
	"tritonhub/fallback"
	"tritonhub/store"
)

// fakeStore is the in-memory store the view-model tests drive. Errors can
// be scripted per table and every mutation is counted.
type fakeStore struct {
	mu     sync.Mutex
	rows   map[string][]store.Row
	nextID int

	failSelect map[string]error
	failInsert map[string]error
	failUpdate map[string]error
	failDelete map[string]error

	inserts int
	updates int
	deletes int

	subs []*fakeSub
}

type fakeSub struct {
	table    string
	events   chan store.Event
	canceled bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:       make(map[string][]store.Row),
		failSelect: make(map[string]error),
		failInsert: make(map[string]error),
		failUpdate: make(map[string]error),
		failDelete: make(map[string]error),
	}
}

func (f *fakeStore) add(table string, row store.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[table] = append(f.rows[table], row)
}

func matches(row store.Row, filter store.Filter) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != v {
			return false
		}
	}
	return true
}

func (f *fakeStore) Select(ctx context.Context, table string, filter store.Filter, order []store.Order, limit int) ([]store.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSelect[table]; err != nil {
		return nil, err
	}
	var out []store.Row
	for _, row := range f.rows[table] {
		if !matches(row, filter) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failInsert[table]; err != nil {
		return nil, err
	}
	f.inserts++
	copied := store.Row{}
	for k, v := range row {
		copied[k] = v
	}
	if id, _ := copied["id"].(string); id == "" {
		f.nextID++
		copied["id"] = fmt.Sprintf("srv-%d", f.nextID)
	}
	f.rows[table] = append(f.rows[table], copied)
	return copied, nil
}

func (f *fakeStore) Update(ctx context.Context, table string, filter store.Filter, patch store.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpdate[table]; err != nil {
		return err
	}
	f.updates++
	for _, row := range f.rows[table] {
		if !matches(row, filter) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, table string, filter store.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[table]; err != nil {
		return err
	}
	f.deletes++
	kept := f.rows[table][:0]
	for _, row := range f.rows[table] {
		if !matches(row, filter) {
			kept = append(kept, row)
		}
	}
	f.rows[table] = kept
	return nil
}

func (f *fakeStore) Count(ctx context.Context, table string, filter store.Filter) (int, error) {
	rows, err := f.Select(ctx, table, filter, nil, 0)
	return len(rows), err
}

func (f *fakeStore) Subscribe(table string, filter store.Filter) (*store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{table: table, events: make(chan store.Event, 16)}
	f.subs = append(f.subs, sub)
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !sub.canceled {
			sub.canceled = true
			close(sub.events)
		}
	}
	return store.NewSubscription(sub.events, cancel), nil
}

func (f *fakeStore) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subs {
		if !sub.canceled {
			n++
		}
	}
	return n
}

func (f *fakeStore) mutationCounts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts, f.updates, f.deletes
}

func newTestBackend(f *fakeStore) (*Backend, *noticeLog) {
	notices := &noticeLog{}
	guard := fallback.NewGuard(fallback.ModeLive, f, nil, notices)
	return &Backend{Guard: guard, Notifier: notices}, notices
}

type noticeLog struct {
	mu       sync.Mutex
	messages []string
}

func (n *noticeLog) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *noticeLog) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

var _ store.Store = (*fakeStore)(nil)
var _ errs.Notifier = (*noticeLog)(nil)
