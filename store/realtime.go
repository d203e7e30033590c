package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 25 * time.Second
	reconnectDelay    = 2 * time.Second
)

// phoenixMessage is the realtime socket frame format.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type changePayload struct {
	Type      string `json:"type"`
	Record    Row    `json:"record"`
	OldRecord Row    `json:"old_record"`
}

func (s *Supabase) realtimeURL() string {
	wsBase := strings.Replace(s.baseURL, "https://", "wss://", 1)
	wsBase = strings.Replace(wsBase, "http://", "ws://", 1)
	return wsBase + "/realtime/v1/websocket?apikey=" + s.anonKey + "&vsn=1.0.0"
}

// Subscribe opens a change feed for one table/filter. Events arrive on the
// subscription channel until Unsubscribe is called; the channel is closed
// when the feed shuts down.
func (s *Supabase) Subscribe(table string, f Filter) (*Subscription, error) {
	topic := "realtime:public:" + table
	if len(f) == 1 {
		for col, val := range f {
			topic += ":" + col + "=eq." + val
		}
	} else if len(f) > 1 {
		return nil, fmt.Errorf("realtime feed supports at most one filter, got %d", len(f))
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 64)

	go s.runFeedLoop(ctx, topic, events)

	return NewSubscription(events, cancel), nil
}

// Reconnect loop, one connection per subscription.
func (s *Supabase) runFeedLoop(ctx context.Context, topic string, events chan<- Event) {
	defer close(events)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, _, err := websocket.DefaultDialer.Dial(s.realtimeURL(), nil)
			if err != nil {
				log.Printf("Realtime connection failed: %v", err)
				if !sleepOrDone(ctx, reconnectDelay) {
					return
				}
				continue
			}

			if err := joinTopic(conn, topic); err != nil {
				log.Println("Failed to join realtime topic:", err)
				conn.Close()
				if !sleepOrDone(ctx, reconnectDelay) {
					return
				}
				continue
			}

			if err := s.readFeed(ctx, conn, topic, events); err != nil {
				log.Printf("Realtime socket closed: %v", err)
			}
			conn.Close()

			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
		}
	}
}

func joinTopic(conn *websocket.Conn, topic string) error {
	return conn.WriteJSON(phoenixMessage{
		Topic:   topic,
		Event:   "phx_join",
		Payload: json.RawMessage("{}"),
		Ref:     "1",
	})
}

func (s *Supabase) readFeed(ctx context.Context, conn *websocket.Conn, topic string, events chan<- Event) error {
	// The realtime server drops connections that miss heartbeats.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		ref := 2
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				msg := phoenixMessage{
					Topic:   "phoenix",
					Event:   "heartbeat",
					Payload: json.RawMessage("{}"),
					Ref:     strconv.Itoa(ref),
				}
				ref++
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msg.Topic != topic {
			continue
		}

		switch msg.Event {
		case "INSERT", "UPDATE", "DELETE":
			var payload changePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				log.Println("Invalid realtime payload:", err)
				continue
			}
			row := payload.Record
			if msg.Event == "DELETE" {
				row = payload.OldRecord
			}
			event := Event{Type: EventType(msg.Event), Row: row}
			select {
			case events <- event:
			case <-ctx.Done():
				return nil
			}
		case "phx_reply", "phx_close", "phx_error":
			// Join acks and channel lifecycle frames carry no row changes.
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
