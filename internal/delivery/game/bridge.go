package game

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gatewarden/internal/application"
	"gatewarden/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Bridge is the inbound/outbound game hook in one place. The proxy plugin
// keeps a websocket open; join/chat/quit events flow in, grade and command
// frames flow out. The bridge also owns presence, so it satisfies the
// application's GradeSink, RewardSink and Presence interfaces.
type Bridge struct {
	addr     string
	token    string
	services *application.Service
	logger   application.Logger

	server *http.Server

	mu      sync.RWMutex
	clients map[*client]struct{}
	online  map[uuid.UUID]string
	byName  map[string]uuid.UUID
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewBridge(addr, token string, logger application.Logger) *Bridge {
	return &Bridge{
		addr:    addr,
		token:   token,
		logger:  logger,
		clients: make(map[*client]struct{}),
		online:  make(map[uuid.UUID]string),
		byName:  make(map[string]uuid.UUID),
	}
}

// Attach wires the application services in after construction; the bridge is
// built first because the services need it as their sink.
func (b *Bridge) Attach(services *application.Service) {
	b.services = services
}

func (b *Bridge) Init() error {
	if b.services == nil {
		return errors.New("bridge started without attached services")
	}
	if b.token == "" {
		b.logger.Warn("bridge token is empty, any proxy can connect")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	b.server = &http.Server{Addr: b.addr, Handler: mux}
	return nil
}

func (b *Bridge) Run(ctx context.Context) {
	b.logger.Info("game bridge listening on %s", b.addr)
	if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		b.logger.Error("game bridge: %v", err)
	}
}

func (b *Bridge) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if b.server != nil {
		b.server.Shutdown(ctx)
	}

	b.mu.Lock()
	for c := range b.clients {
		close(c.send)
		c.conn.Close()
	}
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()
}

func (b *Bridge) authorized(r *http.Request) bool {
	if b.token == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(b.token)) == 1
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("bridge upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("proxy connected from %s", r.RemoteAddr)

	go b.writePump(c)
	b.readPump(c)
}

func (b *Bridge) readPump(c *client) {
	defer b.dropClient(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("proxy read: %v", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("bad event frame: %v", err)
			continue
		}
		b.dispatch(ev)
	}
}

func (b *Bridge) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Bridge) dropClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
	c.conn.Close()
}

func (b *Bridge) dispatch(ev Event) {
	switch ev.Type {
	case EventJoin:
		b.setOnline(ev.UUID, ev.Username)
		b.services.Access.HandleJoin(ev.UUID, ev.Username)
		if err := b.services.Rewards.ReconcileOnReconnect(ev.UUID); err != nil {
			b.logger.Error("reconcile rewards for %s: %v", ev.UUID, err)
		}
	case EventChat:
		b.services.Access.HandleGameChat(ev.UUID, ev.Message)
	case EventQuit:
		b.setOffline(ev.UUID)
		b.services.Access.HandleQuit(ev.UUID)
	case EventRoster:
		b.resetRoster(ev.Players)
	default:
		b.logger.Debug("unknown event type %q", ev.Type)
	}
}

func (b *Bridge) setOnline(id uuid.UUID, username string) {
	b.mu.Lock()
	b.online[id] = username
	b.byName[strings.ToLower(username)] = id
	b.mu.Unlock()
}

func (b *Bridge) setOffline(id uuid.UUID) {
	b.mu.Lock()
	if name, ok := b.online[id]; ok {
		delete(b.byName, strings.ToLower(name))
		delete(b.online, id)
	}
	b.mu.Unlock()
}

func (b *Bridge) resetRoster(players []RosterPlayer) {
	b.mu.Lock()
	b.online = make(map[uuid.UUID]string, len(players))
	b.byName = make(map[string]uuid.UUID, len(players))
	for _, p := range players {
		b.online[p.UUID] = p.Username
		b.byName[strings.ToLower(p.Username)] = p.UUID
	}
	b.mu.Unlock()
	b.logger.Debug("roster synced, %d players online", len(players))
}

// IsOnline implements application.Presence.
func (b *Bridge) IsOnline(gameUUID uuid.UUID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.online[gameUUID]
	return ok
}

// ResolveUUID implements application.Presence.
func (b *Bridge) ResolveUUID(username string) (uuid.UUID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.byName[strings.ToLower(username)]
	return id, ok
}

// AssignGrade implements application.GradeSink.
func (b *Bridge) AssignGrade(gameUUID uuid.UUID, grade string) error {
	return b.send(Command{Type: CommandAssignGrade, UUID: gameUUID, Grade: grade})
}

// RevokeGrade implements application.GradeSink.
func (b *Bridge) RevokeGrade(gameUUID uuid.UUID, grade string) error {
	return b.send(Command{Type: CommandRevokeGrade, UUID: gameUUID, Grade: grade})
}

// ApplyReward implements application.RewardSink by running the reward's
// console command on the proxy.
func (b *Bridge) ApplyReward(gameUUID uuid.UUID, username string, spec models.RewardSpec) error {
	command := strings.ReplaceAll(spec.Command, "{player_name}", username)
	if command == "" {
		return fmt.Errorf("reward %q has no command configured", spec.Type)
	}
	return b.send(Command{Type: CommandRunConsole, UUID: gameUUID, Command: command})
}

func (b *Bridge) send(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.clients) == 0 {
		return errors.New("no proxy connected")
	}
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.logger.Warn("proxy send buffer full, dropping frame")
		}
	}
	return nil
}
