package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"stock-watch/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	MessageInitial = "INITIAL"
	MessageUpdate  = "UPDATE"
)

type subscription struct {
	client  *Client
	symbols []string
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It is the only goroutine touching
// the client set or writing to a client's send channel.
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				s.dropClient(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)
			s.deliver(client, s.initialState(nil))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; !ok {
				continue
			}
			sub.client.symbols = toSymbolSet(sub.symbols)
			s.deliver(sub.client, s.initialState(sub.symbols))

		case message := <-s.broadcast:
			for client := range s.clients {
				if out := client.filter(message); out != nil {
					s.deliver(client, out)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// deliver queues message for client; a client whose buffer is full is
// pruned so one slow consumer cannot stall the hub.
func (s *DashboardServer) deliver(client *Client, message *models.MLatestData) {
	select {
	case client.send <- message:
	default:
		s.Logger.Warning("Dropping slow websocket client")
		s.dropClient(client)
	}
}

func (s *DashboardServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connections.Add(-1)
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast records the pass metadata and queues the update for the hub.
// It never blocks the refresh loop: a full queue drops the update.
func (s *DashboardServer) Broadcast(update *models.MLatestData) {
	if update == nil {
		return
	}

	s.stateMutex.Lock()
	s.latestTimestamp = update.Timestamp
	s.latestMetrics = update.Metrics
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- update:
	case <-s.quit:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update")
	}
}

// -----------------------------------------------------------------------------

// initialState builds an INITIAL message from the cache; nil symbols means all.
func (s *DashboardServer) initialState(symbols []string) *models.MLatestData {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	return &models.MLatestData{
		Type:      MessageInitial,
		Snapshots: s.Dashboard.Cache.Snapshot(symbols...),
		Timestamp: s.latestTimestamp,
		Metrics:   s.latestMetrics,
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan *models.MLatestData, 256),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command. Unparseable input closes
// the connection.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	symbols := make([]string, 0, len(cmd.Symbols))
	for _, sym := range cmd.Symbols {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			symbols = append(symbols, sym)
		}
	}

	select {
	case s.subscribe <- subscription{client: client, symbols: symbols}:
	case <-s.quit:
	case <-time.After(writeWait):
	}
}

// -----------------------------------------------------------------------------

func toSymbolSet(symbols []string) map[string]bool {
	if len(symbols) == 0 {
		return nil
	}
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}
