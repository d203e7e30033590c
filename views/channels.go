package views

import (
	"context"
	"sync"

	"tritonhub/store"
)

// Channels owns the channel list for the selected community.
type Channels struct {
	backend *Backend

	mu          sync.Mutex
	communityID string
	sub         *store.Subscription
	creating    bool

	list *Collection[Channel]
}

func NewChannels(backend *Backend) *Channels {
	return &Channels{
		backend: backend,
		list:    NewCollection[Channel](nil),
	}
}

func (v *Channels) CommunityID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.communityID
}

func (v *Channels) Channels() []Channel {
	return v.list.Snapshot()
}

func (v *Channels) Status() Status {
	return v.list.Status()
}

// SwitchCommunity rescopes the list, releasing the old feed first.
func (v *Channels) SwitchCommunity(ctx context.Context, communityID string) error {
	v.mu.Lock()
	if v.communityID == communityID {
		v.mu.Unlock()
		return nil
	}
	old := v.sub
	v.sub = nil
	v.communityID = communityID
	v.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	v.list.Reset()
	if communityID == "" {
		return nil
	}
	if err := v.Load(ctx); err != nil {
		return err
	}
	return v.subscribe(communityID)
}

func (v *Channels) Load(ctx context.Context) error {
	communityID := v.CommunityID()
	if communityID == "" {
		return nil
	}

	rows, err := v.backend.Store().Select(ctx, store.TableChannels,
		store.Filter{"community_id": communityID},
		[]store.Order{{Column: "created_at", Ascending: true}}, 0)
	if err != nil {
		v.backend.report(err, "loading channels")
		return err
	}

	channels := make([]Channel, 0, len(rows))
	for _, row := range rows {
		channel, err := store.DecodeRow[Channel](row)
		if err != nil {
			continue
		}
		channels = append(channels, channel)
	}
	v.list.Replace(channels)
	return nil
}

func (v *Channels) subscribe(communityID string) error {
	sub, err := v.backend.Store().Subscribe(store.TableChannels, store.Filter{"community_id": communityID})
	if err != nil {
		v.backend.report(err, "subscribing to channels")
		return err
	}

	v.mu.Lock()
	if v.communityID != communityID {
		v.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	go func() {
		for event := range sub.Events {
			channel, err := store.DecodeRow[Channel](event.Row)
			if err != nil || channel.ID == "" {
				continue
			}
			if channel.CommunityID != v.CommunityID() {
				continue
			}
			switch event.Type {
			case store.EventInsert, store.EventUpdate:
				v.list.Upsert(channel)
			case store.EventDelete:
				v.list.Remove(channel.ID)
			}
		}
	}()
	return nil
}

// Create adds a text channel to the current community.
func (v *Channels) Create(ctx context.Context, name string) error {
	v.mu.Lock()
	if v.creating || v.communityID == "" || name == "" {
		v.mu.Unlock()
		return nil
	}
	v.creating = true
	communityID := v.communityID
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.creating = false
		v.mu.Unlock()
	}()

	row := store.Row{
		"name":         name,
		"kind":         "text",
		"community_id": communityID,
	}
	if id := v.backend.newRowID(); id != "" {
		row["id"] = id
	}
	inserted, err := v.backend.Store().Insert(ctx, store.TableChannels, row)
	if err != nil {
		v.backend.report(err, "creating channel")
		return err
	}
	if channel, err := store.DecodeRow[Channel](inserted); err == nil && channel.ID != "" {
		v.list.Upsert(channel)
	}
	return nil
}

func (v *Channels) Close() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.communityID = ""
	v.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
