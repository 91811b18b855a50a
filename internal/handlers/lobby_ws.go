// internal/handlers/lobby_ws.go
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

	"github.com/lastcard-club/lastcard/internal/database"
	"github.com/lastcard-club/lastcard/internal/lobby"
)

const autoStartCountdownSec = 10

// LobbyWSHandler upgrades the connection for lobby presence: ready
// states, chat, invites and the auto-start countdown.
func LobbyWSHandler(logger *logrus.Logger, ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/lobby/ws/")
		if i := strings.IndexByte(idStr, '/'); i >= 0 {
			idStr = idStr[:i]
		}
		lobbyID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid lobby_id", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept failed: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("auth failed for lobby %s: %v", lobbyID, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		lob, exists := ms.LobbyStore.Get(lobbyID)
		if !exists {
			// A row without an in-memory lobby means the process restarted
			// or the lobby already emptied out.
			if _, err := database.GetLobby(r.Context(), lobbyID); err == nil {
				c.Close(InvalidLobbyIDError, "lobby is no longer active")
			} else {
				c.Close(InvalidLobbyIDError, "lobby does not exist")
			}
			return
		}

		lob.Mu.Lock()
		_, invited := lob.Users[userID]
		isPrivate := lob.Type == "private"
		isHost := lob.HostUserID == userID
		lob.Mu.Unlock()

		if isPrivate && !invited && !isHost {
			c.Close(websocket.StatusPolicyViolation, "user not invited to private lobby")
			return
		}
		if isHost && !invited {
			lob.Mu.Lock()
			lob.Users[userID] = false
			lob.Mu.Unlock()
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &lobby.LobbyConnection{
			UserID:  userID,
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, 10),
			IsHost:  isHost,
		}

		if err := lob.AddConnection(userID, conn); err != nil {
			logger.Warnf("failed to join lobby %s: %v", lobbyID, err)
			c.Close(websocket.StatusPolicyViolation, fmt.Sprintf("join error: %v", err))
			cancel()
			return
		}

		logger.Infof("user %s (%s) connected to lobby %s", userID, r.RemoteAddr, lobbyID)

		go lobbyWritePump(ctx, c, conn, logger)
		lobbyReadPump(ctx, c, lob, conn, ms, logger)

		logger.Infof("user %s read pump exited for lobby %s", userID, lobbyID)
		lob.RemoveUser(userID)
	}
}

// lobbyReadPump blocks handling inbound lobby packets until the
// connection closes.
func lobbyReadPump(ctx context.Context, c *websocket.Conn, lob *lobby.Lobby, conn *lobby.LobbyConnection, ms *MatchServer, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				!strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("lobby %s: read error for user %s: %v", lob.ID, conn.UserID, err)
			}
			return
		}

		if typ != websocket.MessageText {
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			conn.WriteError("invalid JSON")
			continue
		}

		startCountdown := false
		startMatchNow := false

		lob.Mu.Lock()
		current, stillConnected := lob.Connections[conn.UserID]
		if !stillConnected || current != conn {
			lob.Mu.Unlock()
			continue
		}
		leftLobby := handleLobbyPacket(packet, lob, conn, logger, &startCountdown, &startMatchNow)
		lob.Mu.Unlock()

		if leftLobby {
			lob.RemoveUser(conn.UserID)
			return
		}

		if startMatchNow {
			launchMatch(lob, ms, logger)
			continue
		}
		if startCountdown {
			lob.Mu.Lock()
			lob.StartCountdownUnsafe(autoStartCountdownSec, func(l *lobby.Lobby) {
				logger.Infof("lobby %s: countdown finished, starting match", l.ID)
				launchMatch(l, ms, logger)
			})
			lob.Mu.Unlock()
		}
	}
}

// handleLobbyPacket interprets one packet. The lobby lock is held by
// the caller. Returns true when the user asked to leave the lobby.
func handleLobbyPacket(packet map[string]interface{}, lob *lobby.Lobby, conn *lobby.LobbyConnection, logger *logrus.Logger, startCountdown, startMatchNow *bool) bool {
	action, _ := packet["type"].(string)

	switch action {
	case "ready":
		if lob.MarkUserReadyUnsafe(conn.UserID) {
			*startCountdown = true
		}
	case "unready":
		lob.MarkUserUnreadyUnsafe(conn.UserID)
	case "invite":
		userIDStr, _ := packet["userID"].(string)
		invitee, err := uuid.Parse(userIDStr)
		if err != nil {
			conn.WriteError("invalid userID for invite")
			return false
		}
		lob.InviteUserUnsafe(invitee)
	case "leave_lobby":
		return true
	case "chat":
		msg, _ := packet["msg"].(string)
		if msg != "" {
			lob.BroadcastChatUnsafe(conn, msg)
		}
	case "update_settings":
		if !conn.IsHost {
			conn.WriteError("only the host can update settings")
			return false
		}
		settings, ok := packet["settings"].(map[string]interface{})
		if !ok {
			conn.WriteError("invalid payload for update_settings")
			return false
		}
		lob.UpdateSettingsUnsafe(settings)
	case "start_match":
		if !conn.IsHost {
			conn.WriteError("only the host can force a start")
			return false
		}
		if lob.InMatch {
			conn.WriteError("match already in progress")
			return false
		}
		if !lob.AreAllReadyUnsafe() {
			conn.WriteError("not all users are ready")
			return false
		}
		lob.CancelCountdownUnsafe()
		*startMatchNow = true
	default:
		conn.WriteError(fmt.Sprintf("unknown action type: %s", action))
	}
	return false
}

// launchMatch creates the table for a lobby and announces it.
func launchMatch(lob *lobby.Lobby, ms *MatchServer, logger *logrus.Logger) {
	m := ms.NewMatchFromLobby(context.Background(), lob)
	if m == nil {
		logger.Errorf("lobby %s: match creation failed", lob.ID)
		lob.Mu.Lock()
		lob.BroadcastAllUnsafe(map[string]interface{}{
			"type":    "error",
			"message": "failed to start match",
		})
		lob.Mu.Unlock()
		return
	}

	lob.Mu.Lock()
	lob.InMatch = true
	lob.MatchID = m.ID
	lob.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "match_start",
		"match_id": m.ID.String(),
	})
	lob.Mu.Unlock()
}

// lobbyWritePump drains the connection's out channel onto the socket
// and keeps the connection alive with pings.
func lobbyWritePump(ctx context.Context, c *websocket.Conn, conn *lobby.LobbyConnection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal lobby message for user %s: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("lobby write failed for user %s: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("lobby ping failed for user %s: %v", conn.UserID, err)
				return
			}
		}
	}
}
