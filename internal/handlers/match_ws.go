// internal/handlers/match_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lastcard-club/lastcard/internal/match"
	"github.com/lastcard-club/lastcard/internal/models"
)

// matchMessage is the wire shape of a player action during a match.
type matchMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// MatchWSHandler upgrades the connection for a running match, checks
// that the user holds a seat there, and pumps their actions into the
// table until the socket closes.
func MatchWSHandler(logger *logrus.Logger, ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/match/ws/")
		if i := strings.IndexByte(idStr, '/'); i >= 0 {
			idStr = idStr[:i]
		}
		matchID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid match_id", http.StatusBadRequest)
			return
		}

		m, ok := ms.MatchStore.GetMatch(matchID)
		if !ok {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"match"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept failed for match %s: %v", matchID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != "match" {
			c.Close(BadSubprotocolError, "client must speak the match subprotocol")
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("auth failed for match %s: %v", matchID, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		if !m.HasPlayer(userID) {
			c.Close(websocket.StatusPolicyViolation, "you are not seated at this table")
			return
		}

		m.Mu.Lock()
		if m.BroadcastFn == nil {
			m.BroadcastFn = makeBroadcastFunc(m, logger)
		}
		if m.BroadcastToPlayerFn == nil {
			m.BroadcastToPlayerFn = makeBroadcastToPlayerFunc(m, logger)
		}
		for _, p := range m.Players {
			if p.ID == userID {
				p.Conn = c
			}
		}
		m.Mu.Unlock()

		m.MarkConnected(userID, true)
		logger.Infof("user %s connected to match %s from %s", userID, matchID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readMatchMessages(ctx, c, m, userID, logger)

		m.MarkConnected(userID, false)
		logger.Infof("user %s disconnected from match %s", userID, matchID)
	}
}

// makeBroadcastFunc builds the fan-out used for public match events.
// The match lock is held when events fire, so writes happen on a
// separate goroutine against a snapshot of the connections.
func makeBroadcastFunc(m *match.Match, logger *logrus.Logger) func(ev match.Event) {
	return func(ev match.Event) {
		conns := make([]*websocket.Conn, 0, len(m.Players))
		for _, p := range m.Players {
			if p.Connected && p.Conn != nil {
				conns = append(conns, p.Conn)
			}
		}

		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("marshal broadcast event %s for match %s: %v", ev.Type, m.ID, err)
			return
		}

		go func() {
			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("broadcast write failed in match %s: %v", m.ID, err)
				}
			}
		}()
	}
}

// makeBroadcastToPlayerFunc builds the sender for private events such
// as dealt hands and draw results.
func makeBroadcastToPlayerFunc(m *match.Match, logger *logrus.Logger) func(playerID uuid.UUID, ev match.Event) {
	return func(playerID uuid.UUID, ev match.Event) {
		var target *websocket.Conn
		for _, p := range m.Players {
			if p.ID == playerID {
				if p.Connected && p.Conn != nil {
					target = p.Conn
				}
				break
			}
		}
		if target == nil {
			return
		}

		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("marshal private event %s for %s in match %s: %v", ev.Type, playerID, m.ID, err)
			return
		}

		go func(conn *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Warnf("private write to %s failed in match %s: %v", playerID, m.ID, err)
			}
		}(target)
	}
}

// readMatchMessages blocks reading player actions off the socket and
// feeding them into the table until the connection drops.
func readMatchMessages(ctx context.Context, c *websocket.Conn, m *match.Match, userID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("websocket closed for user %s in match %s", userID, m.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("read error for user %s in match %s: %v", userID, m.ID, err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg matchMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid json from user %s in match %s: %v", userID, m.ID, err)
			sendWsError(c, "invalid JSON")
			continue
		}

		switch msg.Type {
		case "action_draw", "action_play", "action_play_drawn",
			"action_keep_drawn", "action_call", "action_end_turn",
			"action_new_round":
			m.HandlePlayerAction(userID, models.Action{
				Type:    msg.Type,
				Payload: msg.Payload,
			})
		case "ping":
			sendWsMessage(c, map[string]string{"type": "pong"})
		default:
			sendWsError(c, fmt.Sprintf("unknown action type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// sendWsMessage marshals and writes one message with a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}

func sendWsError(c *websocket.Conn, msg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}
