package views

import (
	"context"
	"sort"
	"sync"
	"time"

	"tritonhub/store"
)

// ChatWindow caps how much history one channel loads.
const ChatWindow = 100

// Chat owns the reconciled message window for the active text channel.
// Switching channels tears down the old change feed before the new one is
// established; late events for a superseded channel are dropped when they
// are handled, not just when subscribing.
type Chat struct {
	backend *Backend
	user    store.Identity

	mu        sync.Mutex
	channelID string
	sub       *store.Subscription
	sending   bool

	msgs *Collection[Message]
}

func NewChat(backend *Backend, user store.Identity) *Chat {
	return &Chat{
		backend: backend,
		user:    user,
		msgs:    NewCollection(messageLess),
	}
}

// Oldest first, stable on equal timestamps by id.
func messageLess(a, b Message) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

func (c *Chat) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *Chat) Messages() []Message {
	return c.msgs.Snapshot()
}

func (c *Chat) Status() Status {
	return c.msgs.Status()
}

// SwitchChannel moves the chat scope. The old subscription is released
// first so a notification for the previous channel can never be mistaken
// for the new one.
func (c *Chat) SwitchChannel(ctx context.Context, channelID string) error {
	c.mu.Lock()
	if c.channelID == channelID {
		c.mu.Unlock()
		return nil
	}
	old := c.sub
	c.sub = nil
	c.channelID = channelID
	c.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	c.msgs.Reset()
	if channelID == "" {
		return nil
	}
	if err := c.Load(ctx); err != nil {
		return err
	}
	return c.subscribe(channelID)
}

// Load fetches the most recent window for the current channel. On failure
// the previous window stays visible.
func (c *Chat) Load(ctx context.Context) error {
	channelID := c.ChannelID()
	if channelID == "" {
		return nil
	}

	rows, err := c.backend.Store().Select(ctx, store.TableMessages,
		store.Filter{"channel_id": channelID},
		[]store.Order{{Column: "created_at", Ascending: false}},
		ChatWindow)
	if err != nil {
		c.backend.report(err, "loading messages")
		return err
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		msg, err := store.DecodeRow[Message](row)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	// Fetched newest-first to get the window; shown oldest-first.
	sort.SliceStable(messages, func(i, j int) bool {
		return messageLess(messages[i], messages[j])
	})
	c.msgs.Replace(messages)
	return nil
}

func (c *Chat) subscribe(channelID string) error {
	sub, err := c.backend.Store().Subscribe(store.TableMessages, store.Filter{"channel_id": channelID})
	if err != nil {
		c.backend.report(err, "subscribing to messages")
		return err
	}

	c.mu.Lock()
	if c.channelID != channelID {
		// Scope moved on while we were subscribing.
		c.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()

	go func() {
		for event := range sub.Events {
			c.handleEvent(event)
		}
	}()
	return nil
}

func (c *Chat) handleEvent(event store.Event) {
	msg, err := store.DecodeRow[Message](event.Row)
	if err != nil || msg.ID == "" {
		return
	}
	// Filter by the scope that is active now, not the one at subscribe
	// time: a stale feed must not leak into the new channel.
	if msg.ChannelID != c.ChannelID() {
		return
	}

	switch event.Type {
	case store.EventInsert, store.EventUpdate:
		c.msgs.Upsert(msg)
	case store.EventDelete:
		c.msgs.Remove(msg.ID)
	}
}

// Send posts a message to the active channel. While a send is in flight
// further sends are dropped rather than queued. The mutation is reflected
// locally as soon as the store accepts it; the feed echo, if any, is
// absorbed by the idempotent upsert.
func (c *Chat) Send(ctx context.Context, content, replyTo string) error {
	c.mu.Lock()
	if c.sending || c.channelID == "" || content == "" {
		c.mu.Unlock()
		return nil
	}
	c.sending = true
	channelID := c.channelID
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	row := store.Row{
		"content":       content,
		"author_id":     c.user.ID,
		"author_name":   c.user.DisplayName,
		"author_avatar": c.user.AvatarInitial,
		"channel_id":    channelID,
	}
	// reply_to references another message id; a non-reply must not send
	// an empty string where the column expects an id or null.
	if replyTo != "" {
		row["reply_to"] = replyTo
	}
	if id := c.backend.newRowID(); id != "" {
		row["id"] = id
		row["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	inserted, err := c.backend.Store().Insert(ctx, store.TableMessages, row)
	if err != nil {
		c.backend.report(err, "sending message")
		return err
	}

	msg, err := store.DecodeRow[Message](inserted)
	if err == nil && msg.ID != "" && msg.ChannelID == c.ChannelID() {
		c.msgs.Upsert(msg)
	}
	return nil
}

// ReplyPreview resolves the target of a reply. A target outside the
// loaded window, or deleted, yields no preview rather than an error.
func (c *Chat) ReplyPreview(replyTo string) (Message, bool) {
	if replyTo == "" {
		return Message{}, false
	}
	return c.msgs.Get(replyTo)
}

// Close releases the change feed. Safe to call on every exit path.
func (c *Chat) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.channelID = ""
	c.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
