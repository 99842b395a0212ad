// Package messages delivers message events to connected portal clients. The
// messaging transport itself is external; this relay only pushes events
// published on a patient's Redis channel down an open websocket.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/oakwell/portal-api/internal/session"
	"github.com/oakwell/portal-api/pkg/logging"
)

const (
	channelPrefix = "messages:"
	writeTimeout  = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Event is one message push delivered to the client.
type Event struct {
	Type   string `json:"type"` // message | appointment_update
	From   string `json:"from,omitempty"`
	Body   string `json:"body,omitempty"`
	SentAt string `json:"sentAt,omitempty"`
}

// Relay bridges Redis pub/sub message events onto patient websockets.
type Relay struct {
	client   *redis.Client
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewRelay creates a message relay.
func NewRelay(client *redis.Client, logger *logging.Logger) *Relay {
	if client == nil {
		panic("messages: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{
		client: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Publish pushes an event to a patient's channel.
func (r *Relay) Publish(ctx context.Context, patientID string, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("messages: encode event: %w", err)
	}
	if err := r.client.Publish(ctx, channelPrefix+patientID, data).Err(); err != nil {
		return fmt.Errorf("messages: publish to %s: %w", patientID, err)
	}
	return nil
}

// Serve upgrades the request and streams the patient's message events until
// the client disconnects.
func (r *Relay) Serve(w http.ResponseWriter, req *http.Request) {
	patient, ok := session.PatientFromContext(req.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err, "patient_id", patient.ID)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	pubsub := r.client.Subscribe(ctx, channelPrefix+patient.ID)
	defer func() { _ = pubsub.Close() }()

	// Reader loop only consumes control frames and detects disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				r.logger.Debug("websocket write failed", "error", err, "patient_id", patient.ID)
				return
			}
		}
	}
}
