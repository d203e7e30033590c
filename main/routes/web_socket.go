package routes

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tritonhub/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSFrame is one browser feed frame, both directions.
type WSFrame struct {
	Type string      `json:"type"` // "select_channel", "change", "notice"
	Data interface{} `json:"data"`
}

type changeData struct {
	Table string    `json:"table"`
	Event string    `json:"event"`
	Row   store.Row `json:"row"`
}

func SetupWebSocketRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/ws", h.Auth.AuthMiddleware(), h.HandleSocket)
}

// HandleSocket runs the browser feed: the client sends select_channel
// frames to move its chat scope, the server pushes change frames for the
// selected channel and notice frames for queued toasts. Selecting a new
// channel releases the old feed before the new one starts, and frames
// from a superseded feed are dropped by the current selection.
func (h *Handlers) HandleSocket(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(frame WSFrame) {
		jsonBytes, err := json.Marshal(frame)
		if err != nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.WriteMessage(websocket.TextMessage, jsonBytes)
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case notice := <-client.Notices():
				send(WSFrame{Type: "notice", Data: notice})
			case <-done:
				return
			}
		}
	}()

	var feedMu sync.Mutex
	var feed *store.Subscription
	var selected string
	releaseFeed := func() {
		feedMu.Lock()
		old := feed
		feed = nil
		selected = ""
		feedMu.Unlock()
		if old != nil {
			old.Unsubscribe()
		}
	}
	defer releaseFeed()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var frame WSFrame
		if err := json.Unmarshal(msgBytes, &frame); err != nil {
			log.Println("Invalid message format:", err)
			continue
		}

		switch frame.Type {
		case "select_channel":
			channelID, ok := frame.Data.(string)
			if !ok {
				log.Println("Invalid select_channel data")
				continue
			}

			releaseFeed()
			if err := client.Chat.SwitchChannel(c.Request.Context(), channelID); err != nil {
				continue
			}
			if channelID == "" {
				continue
			}

			sub, err := h.Guard.StoreFor(client.Identity.AccessToken).Subscribe(
				store.TableMessages, store.Filter{"channel_id": channelID})
			if err != nil {
				log.Println("Change feed unavailable:", err)
				continue
			}

			feedMu.Lock()
			feed = sub
			selected = channelID
			feedMu.Unlock()

			go func(sub *store.Subscription, channelID string) {
				for event := range sub.Events {
					feedMu.Lock()
					current := selected
					feedMu.Unlock()
					if current != channelID {
						return
					}
					send(WSFrame{Type: "change", Data: changeData{
						Table: store.TableMessages,
						Event: string(event.Type),
						Row:   event.Row,
					}})
				}
			}(sub, channelID)

		default:
			log.Println("Unknown message type:", frame.Type)
		}
	}
}
