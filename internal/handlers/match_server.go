// internal/handlers/match_server.go
package handlers

import (
	"context"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"

	"github.com/lastcard-club/lastcard/internal/lobby"
	"github.com/lastcard-club/lastcard/internal/match"
	"github.com/lastcard-club/lastcard/internal/models"
)

// MatchServer owns the in-memory lobby and match stores and turns
// ready lobbies into running matches.
type MatchServer struct {
	LobbyStore *lobby.Store
	MatchStore *match.MatchStore
}

func NewMatchServer() *MatchServer {
	return &MatchServer{
		LobbyStore: lobby.NewStore(),
		MatchStore: match.NewMatchStore(),
	}
}

// NewMatchFromLobby seats every connected lobby user at a new table,
// wires the end-of-round callback back to the lobby, and deals the
// first round. Returns nil if the table cannot be created.
func (ms *MatchServer) NewMatchFromLobby(ctx context.Context, lob *lobby.Lobby) *match.Match {
	lob.Mu.Lock()
	players := make([]*models.Player, 0, len(lob.Connections))
	for userID, conn := range lob.Connections {
		players = append(players, &models.Player{
			ID:        userID,
			Name:      conn.Username,
			Connected: true,
		})
	}
	lob.Mu.Unlock()

	m, err := match.NewMatch(players)
	if err != nil {
		log.Warnf("lobby %s: cannot create match: %v", lob.ID, err)
		return nil
	}
	m.LobbyID = lob.ID

	m.OnMatchEnd = func(lobbyID uuid.UUID, winners []uuid.UUID) {
		ms.onMatchEnd(m, lobbyID, winners)
	}

	ms.MatchStore.AddMatch(m)

	if err := m.Start(rand.Intn(len(players))); err != nil {
		log.Errorf("lobby %s: failed to start match %s: %v", lob.ID, m.ID, err)
		ms.MatchStore.DeleteMatch(m.ID)
		return nil
	}
	return m
}

// onMatchEnd resets the lobby so the table can go again and relays the
// finish order to everyone still in the lobby.
func (ms *MatchServer) onMatchEnd(m *match.Match, lobbyID uuid.UUID, winners []uuid.UUID) {
	lob, exists := ms.LobbyStore.Get(lobbyID)
	if !exists {
		ms.MatchStore.DeleteMatch(m.ID)
		return
	}

	order := make([]string, 0, len(winners))
	for _, w := range winners {
		order = append(order, w.String())
	}

	lob.Mu.Lock()
	lob.InMatch = false
	lob.MatchID = uuid.Nil
	for uid := range lob.Connections {
		lob.ReadyStates[uid] = false
	}
	lob.BroadcastAllUnsafe(map[string]interface{}{
		"type":   "match_results",
		"order":  order,
		"winner": order[0],
	})
	lob.Mu.Unlock()
}
