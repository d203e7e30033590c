package views

import (
	"context"
	"sync"
	"time"

	"tritonhub/store"
)

// ItemList is the shared view-model behind the gear checklist and the
// food-planning list; the two differ only in their backing table.
type ItemList struct {
	backend *Backend
	user    store.Identity
	table   string

	mu        sync.Mutex
	channelID string
	sub       *store.Subscription
	adding    bool

	items *Collection[Item]
}

func NewChecklist(backend *Backend, user store.Identity) *ItemList {
	return newItemList(backend, user, store.TableChecklist)
}

func NewFoodList(backend *Backend, user store.Identity) *ItemList {
	return newItemList(backend, user, store.TableFood)
}

func newItemList(backend *Backend, user store.Identity, table string) *ItemList {
	return &ItemList{
		backend: backend,
		user:    user,
		table:   table,
		items:   NewCollection[Item](nil),
	}
}

func (v *ItemList) Table() string { return v.table }

func (v *ItemList) ChannelID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channelID
}

func (v *ItemList) Items() []Item {
	return v.items.Snapshot()
}

func (v *ItemList) Item(itemID string) (Item, bool) {
	return v.items.Get(itemID)
}

func (v *ItemList) Status() Status {
	return v.items.Status()
}

func (v *ItemList) SwitchChannel(ctx context.Context, channelID string) error {
	v.mu.Lock()
	if v.channelID == channelID {
		v.mu.Unlock()
		return nil
	}
	old := v.sub
	v.sub = nil
	v.channelID = channelID
	v.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	v.items.Reset()
	if channelID == "" {
		return nil
	}
	if err := v.Load(ctx); err != nil {
		return err
	}
	return v.subscribe(channelID)
}

func (v *ItemList) Load(ctx context.Context) error {
	channelID := v.ChannelID()
	if channelID == "" {
		return nil
	}

	rows, err := v.backend.Store().Select(ctx, v.table,
		store.Filter{"channel_id": channelID},
		[]store.Order{{Column: "created_at", Ascending: true}}, 0)
	if err != nil {
		v.backend.report(err, "loading items")
		return err
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := store.DecodeRow[Item](row)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	v.items.Replace(items)
	return nil
}

func (v *ItemList) subscribe(channelID string) error {
	sub, err := v.backend.Store().Subscribe(v.table, store.Filter{"channel_id": channelID})
	if err != nil {
		v.backend.report(err, "subscribing to items")
		return err
	}

	v.mu.Lock()
	if v.channelID != channelID {
		v.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	go func() {
		for event := range sub.Events {
			item, err := store.DecodeRow[Item](event.Row)
			if err != nil || item.ID == "" {
				continue
			}
			if item.ChannelID != v.ChannelID() {
				continue
			}
			switch event.Type {
			case store.EventInsert, store.EventUpdate:
				v.items.Upsert(item)
			case store.EventDelete:
				v.items.Remove(item.ID)
			}
		}
	}()
	return nil
}

func (v *ItemList) Add(ctx context.Context, text string) error {
	v.mu.Lock()
	if v.adding || v.channelID == "" || text == "" {
		v.mu.Unlock()
		return nil
	}
	v.adding = true
	channelID := v.channelID
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.adding = false
		v.mu.Unlock()
	}()

	row := store.Row{
		"text":       text,
		"checked":    false,
		"channel_id": channelID,
		"created_by": v.user.ID,
	}
	if id := v.backend.newRowID(); id != "" {
		row["id"] = id
		row["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	inserted, err := v.backend.Store().Insert(ctx, v.table, row)
	if err != nil {
		v.backend.report(err, "adding item")
		return err
	}
	if item, err := store.DecodeRow[Item](inserted); err == nil && item.ID != "" {
		v.items.Upsert(item)
	}
	return nil
}

func (v *ItemList) EditText(ctx context.Context, itemID, text string) error {
	if text == "" {
		return nil
	}
	if _, ok := v.items.Get(itemID); !ok {
		return nil
	}

	err := v.backend.Store().Update(ctx, v.table,
		store.Filter{"id": itemID}, store.Row{"text": text})
	if err != nil {
		v.backend.report(err, "editing item")
		return err
	}
	v.items.Mutate(itemID, func(i *Item) { i.Text = text })
	return nil
}

// Toggle flips the checkbox optimistically and reverts on failure.
func (v *ItemList) Toggle(ctx context.Context, itemID string) error {
	item, ok := v.items.Get(itemID)
	if !ok {
		return nil
	}

	wanted := !item.Checked
	v.items.Mutate(itemID, func(i *Item) { i.Checked = wanted })

	err := v.backend.Store().Update(ctx, v.table,
		store.Filter{"id": itemID}, store.Row{"checked": wanted})
	if err != nil {
		v.items.Mutate(itemID, func(i *Item) { i.Checked = !wanted })
		v.backend.report(err, "updating item")
		return err
	}
	return nil
}

func (v *ItemList) Delete(ctx context.Context, itemID string) error {
	if _, ok := v.items.Get(itemID); !ok {
		return nil
	}

	err := v.backend.Store().Delete(ctx, v.table, store.Filter{"id": itemID})
	if err != nil {
		v.backend.report(err, "deleting item")
		return err
	}
	v.items.Remove(itemID)
	return nil
}

func (v *ItemList) Close() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.channelID = ""
	v.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
