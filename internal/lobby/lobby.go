// internal/lobby/lobby.go
package lobby

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lastcard-club/lastcard/internal/database"
)

// Lobby is an ephemeral grouping of users waiting to start a match.
// It tracks who joined, who is ready, and runs an optional auto-start
// countdown once everyone is ready.
type Lobby struct {
	ID         uuid.UUID `json:"id"`
	HostUserID uuid.UUID `json:"hostUserID"`
	Type       string    `json:"type"`

	// Users maps userID -> joined (true) or merely invited (false).
	Users map[uuid.UUID]bool `json:"-"`

	// Connections holds live websocket presences for joined users.
	Connections map[uuid.UUID]*LobbyConnection `json:"-"`
	ReadyStates map[uuid.UUID]bool             `json:"-"`

	MatchID uuid.UUID `json:"matchId,omitempty"`
	InMatch bool      `json:"inMatch"`

	CountdownTimer *time.Timer `json:"-"`

	Settings Settings `json:"settings"`

	// OnEmpty fires after the last connected user leaves. The store
	// that owns this lobby assigns it to delete itself.
	OnEmpty func(lobbyID uuid.UUID) `json:"-"`

	Mu sync.Mutex
}

// LobbyConnection is one user's live presence in the lobby.
type LobbyConnection struct {
	UserID   uuid.UUID
	Username string
	Cancel   context.CancelFunc
	OutChan  chan map[string]interface{}
	IsHost   bool
}

// Write pushes msg onto the connection's OutChan without blocking.
// Messages to a full or closed channel are dropped.
func (conn *LobbyConnection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("lobby: dropped %q message for user %s, out channel full or closed", msgType, conn.UserID)
	}
}

// WriteError sends an error object to this connection only.
func (conn *LobbyConnection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// Settings holds lobby behavior toggles.
type Settings struct {
	AutoStart bool `json:"autoStart"`
}

// New creates an ephemeral private lobby hosted by hostID.
func New(hostID uuid.UUID) *Lobby {
	lobbyID, _ := uuid.NewRandom()
	return &Lobby{
		ID:          lobbyID,
		HostUserID:  hostID,
		Type:        "private",
		Users:       make(map[uuid.UUID]bool),
		Connections: make(map[uuid.UUID]*LobbyConnection),
		ReadyStates: make(map[uuid.UUID]bool),
		Settings:    Settings{AutoStart: true},
	}
}

// InviteUserUnsafe marks userID as invited. Assumes lock is held.
func (lobby *Lobby) InviteUserUnsafe(userID uuid.UUID) {
	if _, exists := lobby.Users[userID]; exists {
		return
	}
	lobby.Users[userID] = false
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":      "lobby_invite",
		"invitedID": userID.String(),
	})
}

// AddConnection registers a user's live connection, replacing any
// previous one, and sends them the full lobby state. Acquires lock.
func (lobby *Lobby) AddConnection(userID uuid.UUID, conn *LobbyConnection) error {
	lobby.Mu.Lock()

	joined, exists := lobby.Users[userID]
	if !exists {
		if lobby.Type == "private" {
			lobby.Mu.Unlock()
			return fmt.Errorf("user %s not invited to private lobby %s", userID, lobby.ID)
		}
		lobby.Users[userID] = true
	} else if joined {
		if oldConn, ok := lobby.Connections[userID]; ok && oldConn != conn {
			close(oldConn.OutChan)
			if oldConn.Cancel != nil {
				oldConn.Cancel()
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	user, err := database.GetUserByID(ctx, userID)
	cancel()
	if err != nil {
		conn.Username = fmt.Sprintf("player_%s", userID.String()[:4])
	} else {
		conn.Username = user.Username
	}

	lobby.Connections[userID] = conn
	lobby.ReadyStates[userID] = false
	lobby.Users[userID] = true

	statePayload := lobby.statePayloadUnsafe(userID)
	joinPayload := lobby.joinPayloadUnsafe(userID)

	lobby.Mu.Unlock()

	go func() {
		conn.Write(statePayload)
		lobby.BroadcastAllUnsafe(joinPayload)
	}()

	return nil
}

// RemoveUser drops a user's connection and ready state. Fires OnEmpty
// when the last connection is gone. Acquires lock.
func (lobby *Lobby) RemoveUser(userID uuid.UUID) {
	lobby.Mu.Lock()

	conn, connected := lobby.Connections[userID]
	if !connected {
		delete(lobby.Users, userID)
		lobby.Mu.Unlock()
		return
	}

	go func(ch chan map[string]interface{}, cancel context.CancelFunc) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("lobby %s: close of out channel for %s raced: %v", lobby.ID, userID, r)
			}
		}()
		close(ch)
		if cancel != nil {
			cancel()
		}
	}(conn.OutChan, conn.Cancel)

	delete(lobby.Users, userID)
	delete(lobby.Connections, userID)
	delete(lobby.ReadyStates, userID)

	leavePayload := lobby.leavePayloadUnsafe(userID, conn.Username)
	isEmpty := len(lobby.Connections) == 0
	onEmpty := lobby.OnEmpty
	lobby.CancelCountdownUnsafe()

	lobby.Mu.Unlock()

	lobby.BroadcastAllUnsafe(leavePayload)

	if isEmpty && onEmpty != nil {
		onEmpty(lobby.ID)
	}
}

// StartCountdownUnsafe begins the auto-start countdown. Assumes lock
// is held. Returns false if a countdown is running, a match is in
// progress, or fewer than two players are connected.
func (lobby *Lobby) StartCountdownUnsafe(seconds int, callback func(*Lobby)) bool {
	if lobby.InMatch || lobby.CountdownTimer != nil {
		return false
	}
	if len(lobby.Connections) < 2 {
		return false
	}

	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":    "lobby_countdown_start",
		"seconds": seconds,
	})

	var timer *time.Timer
	timer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		lobby.Mu.Lock()
		if lobby.CountdownTimer != timer {
			// a newer countdown replaced this one
			lobby.Mu.Unlock()
			return
		}
		lobby.CountdownTimer = nil
		lobby.Mu.Unlock()
		callback(lobby)
	})
	lobby.CountdownTimer = timer
	return true
}

// CancelCountdownUnsafe stops any running countdown. Assumes lock is held.
func (lobby *Lobby) CancelCountdownUnsafe() {
	if lobby.CountdownTimer == nil {
		return
	}
	if lobby.CountdownTimer.Stop() {
		lobby.BroadcastAllUnsafe(map[string]interface{}{
			"type": "lobby_countdown_cancel",
		})
	}
	lobby.CountdownTimer = nil
}

// MarkUserReadyUnsafe flags a user ready and reports whether an
// auto-start countdown should begin. Assumes lock is held.
func (lobby *Lobby) MarkUserReadyUnsafe(userID uuid.UUID) bool {
	conn, ok := lobby.Connections[userID]
	if !ok || lobby.ReadyStates[userID] {
		return false
	}

	lobby.ReadyStates[userID] = true
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "ready_update",
		"user_id":  userID.String(),
		"username": conn.Username,
		"is_ready": true,
	})

	return lobby.AreAllReadyUnsafe() && lobby.Settings.AutoStart && !lobby.InMatch
}

// MarkUserUnreadyUnsafe clears a user's ready flag and cancels any
// countdown. Assumes lock is held.
func (lobby *Lobby) MarkUserUnreadyUnsafe(userID uuid.UUID) {
	conn, ok := lobby.Connections[userID]
	if !ok || !lobby.ReadyStates[userID] {
		return
	}

	lobby.ReadyStates[userID] = false
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "ready_update",
		"user_id":  userID.String(),
		"username": conn.Username,
		"is_ready": false,
	})
	lobby.CancelCountdownUnsafe()
}

// AreAllReadyUnsafe reports whether every connected user is ready.
// Needs at least two players. Assumes lock is held.
func (lobby *Lobby) AreAllReadyUnsafe() bool {
	if len(lobby.Connections) < 2 {
		return false
	}
	for userID := range lobby.Connections {
		if !lobby.ReadyStates[userID] {
			return false
		}
	}
	return true
}

// BroadcastAllUnsafe sends msg to every connection. Writes are
// non-blocking so this is safe with or without the lock.
func (lobby *Lobby) BroadcastAllUnsafe(msg map[string]interface{}) {
	for _, conn := range lobby.Connections {
		conn.Write(msg)
	}
}

// BroadcastChatUnsafe relays a chat line from sender. Assumes lock is held.
func (lobby *Lobby) BroadcastChatUnsafe(sender *LobbyConnection, msg string) {
	username := sender.Username
	if username == "" {
		username = "unknown"
	}
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "chat",
		"user_id":  sender.UserID.String(),
		"username": username,
		"msg":      msg,
		"ts":       time.Now().Unix(),
	})
}

// UpdateSettingsUnsafe applies a partial settings update and
// broadcasts the result when anything changed. Assumes lock is held.
func (lobby *Lobby) UpdateSettingsUnsafe(settings map[string]interface{}) {
	changed := false
	if autoStart, ok := settings["autoStart"].(bool); ok && lobby.Settings.AutoStart != autoStart {
		lobby.Settings.AutoStart = autoStart
		changed = true
		if !autoStart {
			lobby.CancelCountdownUnsafe()
		}
	}
	if changed {
		lobby.BroadcastAllUnsafe(map[string]interface{}{
			"type":     "lobby_settings_updated",
			"settings": lobby.Settings,
		})
	}
}

// SendStateUnsafe sends the full lobby state to one user. Assumes lock is held.
func (lobby *Lobby) SendStateUnsafe(userID uuid.UUID) {
	conn, ok := lobby.Connections[userID]
	if !ok {
		return
	}
	conn.Write(lobby.statePayloadUnsafe(userID))
}

func (lobby *Lobby) statusPayloadUnsafe() map[string]interface{} {
	users := []map[string]interface{}{}
	for userID, conn := range lobby.Connections {
		users = append(users, map[string]interface{}{
			"id":       userID.String(),
			"username": conn.Username,
			"is_host":  conn.IsHost,
			"is_ready": lobby.ReadyStates[userID],
		})
	}
	return map[string]interface{}{"users": users}
}

func (lobby *Lobby) statePayloadUnsafe(userID uuid.UUID) map[string]interface{} {
	isHost := false
	if conn, ok := lobby.Connections[userID]; ok {
		isHost = conn.IsHost
	}
	matchIDStr := ""
	if lobby.MatchID != uuid.Nil {
		matchIDStr = lobby.MatchID.String()
	}
	return map[string]interface{}{
		"type":         "lobby_state",
		"lobby_id":     lobby.ID.String(),
		"host_id":      lobby.HostUserID.String(),
		"your_id":      userID.String(),
		"your_is_host": isHost,
		"lobby_type":   lobby.Type,
		"in_match":     lobby.InMatch,
		"match_id":     matchIDStr,
		"settings":     lobby.Settings,
		"lobby_status": lobby.statusPayloadUnsafe(),
	}
}

func (lobby *Lobby) joinPayloadUnsafe(userID uuid.UUID) map[string]interface{} {
	isHost := false
	username := "unknown"
	if conn, ok := lobby.Connections[userID]; ok {
		isHost = conn.IsHost
		username = conn.Username
	}
	return map[string]interface{}{
		"type":         "lobby_update",
		"user_join":    userID.String(),
		"username":     username,
		"is_host":      isHost,
		"lobby_status": lobby.statusPayloadUnsafe(),
	}
}

func (lobby *Lobby) leavePayloadUnsafe(userID uuid.UUID, username string) map[string]interface{} {
	return map[string]interface{}{
		"type":         "lobby_update",
		"user_left":    userID.String(),
		"username":     username,
		"lobby_status": lobby.statusPayloadUnsafe(),
	}
}
