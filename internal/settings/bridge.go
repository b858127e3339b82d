// Package settings runs the local websocket bridge between the host and the
// external settings UI. The UI reads plugin settings descriptors and config
// documents through it and pushes changes back; every change is re-broadcast
// both to other UI clients and to subscribed plugins through the host.
package settings

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/overglass/overglass/internal/logging"
	"github.com/overglass/overglass/internal/plugin"
)

// Message is the bridge wire format, shared by both directions.
type Message struct {
	Type     string          `json:"type"`
	PluginID string          `json:"pluginId,omitempty"`
	Key      string          `json:"key,omitempty"`
	Value    any             `json:"value,omitempty"`
	Action   string          `json:"action,omitempty"`
	Error    string          `json:"error,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Message types handled by the bridge.
const (
	TypeSetConfig     = "setConfig"
	TypeConfigChanged = "configChanged"
	TypeAction        = "settingsAction"
	TypeGetSettings   = "getSettings"
	TypeSettings      = "settings"
	TypePlugins       = "plugins"
	TypeListPlugins   = "listPlugins"
	TypeError         = "error"
)

// Bridge is the websocket hub. One instance serves any number of UI
// clients; it only ever binds loopback.
type Bridge struct {
	addr string
	host *plugin.Host

	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.Mutex
	clients map[string]*websocket.Conn

	log *logging.Logger
}

// NewBridge creates a bridge over the given host.
func NewBridge(addr string, host *plugin.Host, log *logging.Logger) *Bridge {
	if log == nil {
		log = logging.Nop()
	}
	return &Bridge{
		addr: addr,
		host: host,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The bridge binds loopback only; the settings UI is a
			// local window, not a browser page with an origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
		log:     log.Component("settings-bridge"),
	}
}

// Start listens and serves until the context is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)

	b.server = &http.Server{
		Addr:         b.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.closeAll()
		_ = b.server.Shutdown(shutdownCtx)
	}()

	b.log.Info().Str("addr", b.addr).Msg("settings bridge listening")
	err := b.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.clients[id] = conn
	b.mu.Unlock()
	b.log.Debug().Str("client", id).Msg("settings client connected")

	defer func() {
		b.mu.Lock()
		delete(b.clients, id)
		b.mu.Unlock()
		conn.Close()
		b.log.Debug().Str("client", id).Msg("settings client disconnected")
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if reply := b.dispatch(msg); reply != nil {
			b.mu.Lock()
			err := conn.WriteJSON(reply)
			b.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dispatch handles one UI message, returning an optional direct reply.
func (b *Bridge) dispatch(msg Message) *Message {
	switch msg.Type {
	case TypeSetConfig:
		ctx, err := b.host.Plugin(msg.PluginID)
		if err != nil {
			return &Message{Type: TypeError, PluginID: msg.PluginID, Error: err.Error()}
		}
		ctx.Config().Set(msg.Key, msg.Value)

		change := map[string]any{"pluginId": msg.PluginID, "key": msg.Key, "value": msg.Value}
		b.host.Broadcast(TypeConfigChanged, change)
		b.Broadcast(Message{Type: TypeConfigChanged, PluginID: msg.PluginID, Key: msg.Key, Value: msg.Value})
		return nil

	case TypeAction:
		b.host.Broadcast(TypeAction, map[string]any{
			"pluginId": msg.PluginID,
			"action":   msg.Action,
		})
		return nil

	case TypeGetSettings:
		ctx, err := b.host.Plugin(msg.PluginID)
		if err != nil {
			return &Message{Type: TypeError, PluginID: msg.PluginID, Error: err.Error()}
		}
		desc, err := plugin.LoadSettingsDescriptor(ctx.SourceDir())
		if err != nil {
			return &Message{Type: TypeError, PluginID: msg.PluginID, Error: err.Error()}
		}
		payload, err := json.Marshal(map[string]any{
			"descriptor": desc,
			"config":     json.RawMessage(ctx.Config().Document()),
		})
		if err != nil {
			return &Message{Type: TypeError, PluginID: msg.PluginID, Error: err.Error()}
		}
		return &Message{Type: TypeSettings, PluginID: msg.PluginID, Payload: payload}

	case TypeListPlugins:
		payload, err := json.Marshal(b.host.PluginIDs())
		if err != nil {
			return &Message{Type: TypeError, Error: err.Error()}
		}
		return &Message{Type: TypePlugins, Payload: payload}

	default:
		b.log.Debug().Str("type", msg.Type).Msg("settings message ignored")
		return nil
	}
}

// Broadcast pushes a message to every connected UI client.
func (b *Bridge) Broadcast(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, conn := range b.clients {
		if err := conn.WriteJSON(msg); err != nil {
			b.log.Warn().Str("client", id).Err(err).Msg("settings client write failed")
			conn.Close()
			delete(b.clients, id)
		}
	}
}

func (b *Bridge) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, conn := range b.clients {
		conn.Close()
		delete(b.clients, id)
	}
}
