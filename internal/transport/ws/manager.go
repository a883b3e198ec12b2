// Package ws broadcasts job status updates to WebSocket clients.
package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/trunov/converthub/internal/entities"
)

type Manager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 32),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Start runs the broadcast loop and consumes job updates from the store.
func (m *Manager) Start(updates <-chan entities.Job) {
	go func() {
		for job := range updates {
			m.BroadcastJobUpdate(job)
		}
	}()
	go func() {
		for {
			select {
			case client := <-m.register:
				m.mu.Lock()
				m.clients[client] = true
				m.mu.Unlock()
			case client := <-m.unregister:
				m.mu.Lock()
				if _, ok := m.clients[client]; ok {
					delete(m.clients, client)
					client.Close()
				}
				m.mu.Unlock()
			case message := <-m.broadcast:
				m.mu.Lock()
				for client := range m.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						client.Close()
						delete(m.clients, client)
					}
				}
				m.mu.Unlock()
			}
		}
	}()
}

func (m *Manager) BroadcastJobUpdate(job entities.Job) {
	update := map[string]any{
		"type":      "job_update",
		"job_id":    job.ID,
		"status":    job.Status,
		"progress":  job.Progress,
		"timestamp": job.UpdatedAt,
	}
	if job.Status == entities.StatusError && job.Error != "" {
		update["error"] = job.Error
	}
	if job.Status == entities.StatusCompleted {
		update["method_used"] = job.MethodUsed
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("[ws] failed to marshal job update: %v", err)
		return
	}
	select {
	case m.broadcast <- data:
	default:
	}
}

func (m *Manager) RegisterClient(conn *websocket.Conn)   { m.register <- conn }
func (m *Manager) UnregisterClient(conn *websocket.Conn) { m.unregister <- conn }
