package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/fera765/chatstory/internal/model"
)

// Client is one WebSocket subscriber watching a single job.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub fans job progress events out to WebSocket subscribers. Polling
// remains the integration contract; the hub is a push supplement.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	jobID   string
	payload []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run is the hub's main loop; call it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.JobID]; ok {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.clients, client.JobID)
				}
			}
			h.mu.Unlock()
			// Send is closed here and nowhere else: unregister runs
			// exactly once per client, after its reader loop has exited,
			// so no sender can hit a closed channel.
			close(client.Send)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.jobID] {
				select {
				case client.Send <- msg.payload:
				default:
					// Slow consumer; drop it rather than stall the
					// pipeline's progress reporting. The channel stays
					// open until the client unregisters itself.
					delete(h.clients[msg.jobID], client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastProgress pushes a progress snapshot to the job's watchers.
func (h *Hub) BroadcastProgress(jobID string, progress int, status model.JobStatus, message string) {
	h.send(jobID, model.WSProgressMessage{
		Type:     model.WSMessageTypeProgress,
		JobID:    jobID,
		Status:   status,
		Progress: progress,
		Message:  message,
	})
}

// BroadcastComplete announces the finished video.
func (h *Hub) BroadcastComplete(jobID, videoURL string) {
	h.send(jobID, model.WSCompleteMessage{
		Type:     model.WSMessageTypeComplete,
		JobID:    jobID,
		VideoURL: videoURL,
	})
}

// BroadcastError announces a failed job.
func (h *Hub) BroadcastError(jobID, code, message string) {
	h.send(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
}

func (h *Hub) send(jobID string, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{jobID: jobID, payload: payload}:
	default:
		// Hub backlog full; progress is recoverable via polling.
	}
}

// HandleConnection serves one subscriber until the peer hangs up.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 64),
	}

	h.register <- client
	defer func() { h.unregister <- client }()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case payload, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case client.Send <- pong:
			default:
			}
		}
	}
}
