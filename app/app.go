package app

import (
	"sync"

	"tritonhub/fallback"
	"tritonhub/session"
	"tritonhub/store"
	"tritonhub/views"
)

// noticeBuffer bounds how many undelivered toasts a client can queue.
const noticeBuffer = 32

// Client is everything the server holds for one signed-in user: their
// navigation state, their view-models, and the queue of notices waiting
// for the browser feed. It is also the user's toast surface.
type Client struct {
	Identity store.Identity
	Session  *session.Controller

	Communities *views.Communities
	Channels    *views.Channels
	Chat        *views.Chat
	Itinerary   *views.Itinerary
	Checklist   *views.ItemList
	Food        *views.ItemList

	notices chan string
}

// Notify queues a toast for the browser feed. A client that stopped
// draining loses the oldest ones rather than blocking the sender.
func (c *Client) Notify(message string) {
	for {
		select {
		case c.notices <- message:
			return
		default:
			select {
			case <-c.notices:
			default:
			}
		}
	}
}

// Notices is the browser feed's read side.
func (c *Client) Notices() <-chan string {
	return c.notices
}

// Close releases every change feed the client holds.
func (c *Client) Close() {
	c.Communities.Close()
	c.Channels.Close()
	c.Chat.Close()
	c.Itinerary.Close()
	c.Checklist.Close()
	c.Food.Close()
}

// Registry maps signed-in users to their clients. It doubles as the
// process-wide notifier: a notice with no addressee goes to everyone.
type Registry struct {
	guard *fallback.Guard
	auth  func() store.Auth

	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry(guard *fallback.Guard, auth func() store.Auth) *Registry {
	return &Registry{
		guard:   guard,
		auth:    auth,
		clients: make(map[string]*Client),
	}
}

// Get returns the client for a user id, if signed in.
func (r *Registry) Get(userID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[userID]
	return client, ok
}

// Attach returns the user's client, building the view-model set on first
// sight. A session running in fallback mode greets the new client with
// the one-time offline notice.
func (r *Registry) Attach(identity store.Identity) *Client {
	r.mu.Lock()
	if client, ok := r.clients[identity.ID]; ok {
		r.mu.Unlock()
		return client
	}

	client := &Client{
		Identity: identity,
		Session:  session.NewController(r.auth()),
		notices:  make(chan string, noticeBuffer),
	}
	backend := &views.Backend{Guard: r.guard, Token: identity.AccessToken, Notifier: client}
	client.Communities = views.NewCommunities(backend, identity)
	client.Channels = views.NewChannels(backend)
	client.Chat = views.NewChat(backend, identity)
	client.Itinerary = views.NewItinerary(backend, identity)
	client.Checklist = views.NewChecklist(backend, identity)
	client.Food = views.NewFoodList(backend, identity)
	client.Session.Restore(identity)
	r.clients[identity.ID] = client
	mode := r.guard.Mode()
	r.mu.Unlock()

	if mode == fallback.ModeFallback {
		client.Notify("Working offline with demo data — the hosted database is not set up.")
	}
	return client
}

// Drop signs a user out of the registry and tears down their feeds.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	client, ok := r.clients[userID]
	delete(r.clients, userID)
	r.mu.Unlock()
	if ok {
		client.Close()
	}
}

// Notify broadcasts to every connected client. The mode guard uses this
// for the one-shot demotion notice.
func (r *Registry) Notify(message string) {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.Unlock()

	for _, client := range clients {
		client.Notify(message)
	}
}
