package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Table names in the hosted schema.
const (
	TableCommunities = "communities"
	TableMembers     = "community_members"
	TableChannels    = "channels"
	TableMessages    = "messages"
	TableActivities  = "itinerary_activities"
	TableChecklist   = "checklist_items"
	TableFood        = "food_items"
)

// Row is one record as it travels to and from the remote store.
type Row map[string]any

// Filter maps column names to exact-match values.
type Filter map[string]string

type Order struct {
	Column    string
	Ascending bool
}

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one change notification from a subscription feed.
type Event struct {
	Type EventType
	Row  Row
}

// Subscription is a change feed for one table/filter. Unsubscribe must be
// called on every exit path; it is safe to call more than once.
type Subscription struct {
	Events <-chan Event

	once   sync.Once
	cancel func()
}

func NewSubscription(events <-chan Event, cancel func()) *Subscription {
	return &Subscription{Events: events, cancel: cancel}
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Store is the row-level capability set against named remote tables.
type Store interface {
	Select(ctx context.Context, table string, f Filter, order []Order, limit int) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, f Filter, patch Row) error
	Delete(ctx context.Context, table string, f Filter) error
	Count(ctx context.Context, table string, f Filter) (int, error)
	Subscribe(table string, f Filter) (*Subscription, error)
}

type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	AvatarInitial string `json:"avatar_initial"`

	// AccessToken is the backend credential issued at sign-in. It rides
	// the session, never a response body.
	AccessToken string `json:"-"`
}

type Profile struct {
	DisplayName   string `json:"display_name"`
	AvatarInitial string `json:"avatar_initial"`
}

type AuthEventKind string

const (
	AuthSignedIn  AuthEventKind = "signed_in"
	AuthSignedOut AuthEventKind = "signed_out"
)

type AuthEvent struct {
	Kind     AuthEventKind
	Identity *Identity
}

// Auth is the identity capability set of the remote store.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string, profile Profile) (*Identity, error)
	SignOut(ctx context.Context) error
	CurrentIdentity(ctx context.Context) (*Identity, error)
	AuthEvents() <-chan AuthEvent
}

// DecodeRow converts a raw row into a typed struct by JSON round trip.
func DecodeRow[T any](row Row) (T, error) {
	var data T
	bytes, err := json.Marshal(row)
	if err != nil {
		return data, err
	}
	err = json.Unmarshal(bytes, &data)
	return data, err
}

// EncodeRow converts a typed struct into a raw row.
func EncodeRow(v any) (Row, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row Row
	err = json.Unmarshal(bytes, &row)
	return row, err
}
