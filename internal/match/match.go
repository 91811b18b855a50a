// internal/match/match.go
package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lastcard-club/lastcard/internal/cache"
	"github.com/lastcard-club/lastcard/internal/database"
	"github.com/lastcard-club/lastcard/internal/engine"
	"github.com/lastcard-club/lastcard/internal/models"
)

// OnMatchEndFunc is a function signature that can handle a finished
// round, broadcasting results to the lobby, etc.
type OnMatchEndFunc func(lobbyID uuid.UUID, winners []uuid.UUID)

// Match holds the entire state for a single table in memory: the
// engine session plus everything the engine treats as a collaborator
// (connections, broadcasting, persistence, the action log).
//
// The engine itself is single-threaded by contract; Mu is the serialization
// boundary for every call into it.
type Match struct {
	ID      uuid.UUID
	LobbyID uuid.UUID

	Players []*models.Player // seat order; fixed for the match
	Game    *engine.Game

	Started  bool
	Finished bool

	Mu sync.Mutex

	// BroadcastFn is used to send events to all players. If nil, no broadcast is done.
	BroadcastFn func(ev Event)

	// BroadcastToPlayerFn sends an event to a single specific player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev Event)

	// OnMatchEnd is invoked when a round finishes to broadcast results, etc.
	OnMatchEnd OnMatchEndFunc

	decision    *engine.DrawDecision
	decisionFor uuid.UUID

	actionIndex int
	winnersSeen int
	nextStarter int
	lastSeen    map[uuid.UUID]time.Time
}

// NewMatch builds a table for the given players. Seats follow slice
// order. Player-count bounds are enforced by the engine.
func NewMatch(players []*models.Player) (*Match, error) {
	names := make([]string, len(players))
	for i, p := range players {
		p.Seat = i
		names[i] = p.Name
	}
	g, err := engine.NewGame(names)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, _ := uuid.NewRandom()
	return &Match{
		ID:       id,
		Players:  players,
		Game:     g,
		lastSeen: make(map[uuid.UUID]time.Time),
	}, nil
}

// Start deals the first round with the given starting seat.
func (m *Match) Start(startingSeat int) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Started {
		return nil
	}
	if err := m.startRound(startingSeat); err != nil {
		return err
	}
	m.Started = true
	return nil
}

// startRound deals a fresh round and broadcasts the opening state.
// Callers must hold m.Mu.
func (m *Match) startRound(startingSeat int) error {
	r, err := m.Game.NewRound(startingSeat)
	if err != nil {
		return err
	}
	m.decision = nil
	m.decisionFor = uuid.Nil
	m.winnersSeen = 0
	m.Finished = false
	m.nextStarter = (startingSeat + 1) % len(m.Players)
	m.logAction(uuid.Nil, "round_start", map[string]interface{}{"starting_seat": startingSeat})
	m.persistInitialRoundState()

	top := r.Top()
	m.fire(Event{Type: EventRoundStart, Card: &top, Payload: map[string]interface{}{
		"draw_pile_size": len(r.DrawPile),
	}})
	for _, p := range m.Players {
		m.fireTo(p.ID, Event{Type: EventPrivateHand, Cards: append([]engine.Card(nil), r.Hands[p.Seat]...)})
	}
	m.firePlayerTurn()
	return nil
}

// persistInitialRoundState saves the dealt piles and hands so a
// replay can reconstruct the deal. Runs asynchronously; no obfuscation.
func (m *Match) persistInitialRoundState() {
	r := m.Game.Round
	snap := database.RoundSnapshot{
		DrawPile:    append([]engine.Card(nil), r.DrawPile...),
		DiscardPile: append([]engine.Card(nil), r.DiscardPile...),
		Hands:       make(map[string][]engine.Card, len(m.Players)),
	}
	for _, p := range m.Players {
		snap.Hands[p.ID.String()] = append([]engine.Card(nil), r.Hands[p.Seat]...)
	}
	go func() {
		if err := database.UpsertInitialRoundState(m.ID, snap); err != nil {
			log.Printf("failed to persist initial round state for match %s: %v", m.ID, err)
		}
	}()
}

// HandlePlayerAction is the single entry point for player moves
// coming off the transport. Invalid moves are rejected with a private
// error event; valid ones mutate the engine and broadcast the result.
func (m *Match) HandlePlayerAction(playerID uuid.UUID, action models.Action) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	p := m.playerByID(playerID)
	if p == nil {
		return
	}
	m.lastSeen[playerID] = time.Now()

	r := m.Game.Round
	if r == nil {
		m.fireTo(playerID, errorEvent("no active round"))
		return
	}

	if action.Type == "action_new_round" {
		m.handleNewRound(playerID)
		return
	}

	idx := r.IndexOfSeat(p.Seat)
	if idx < 0 {
		m.fireTo(playerID, errorEvent("you are out of this round"))
		return
	}

	// Remember pre-action penalty state so the resulting forced draw
	// can be announced.
	prePending := r.PendingCallerSeat
	var prePendingHand int
	if prePending >= 0 {
		prePendingHand = len(r.Hands[prePending])
	}

	switch action.Type {
	case "action_draw":
		m.handleDraw(playerID, p, idx)
	case "action_play":
		m.handlePlay(playerID, p, idx, action.Payload)
	case "action_play_drawn":
		m.handlePlayDrawn(playerID, action.Payload)
	case "action_keep_drawn":
		m.handleKeepDrawn(playerID)
	case "action_call":
		m.handleCall(playerID, p, idx)
	case "action_end_turn":
		if err := m.Game.EndTurn(); err != nil {
			m.fireTo(playerID, errorEvent(err.Error()))
			return
		}
		m.clearDecision()
		m.logAction(playerID, action.Type, nil)
	default:
		m.fireTo(playerID, errorEvent(fmt.Sprintf("unknown action %q", action.Type)))
		return
	}

	m.announcePenalty(prePending, prePendingHand)
	m.announceProgress()
}

func (m *Match) handleDraw(playerID uuid.UUID, p *models.Player, idx int) {
	d, err := m.Game.Draw(idx, 1)
	if err != nil {
		m.fireTo(playerID, errorEvent(err.Error()))
		return
	}
	m.logAction(playerID, "action_draw", nil)
	m.fire(Event{Type: EventPlayerDraw, User: &EventUser{ID: playerID}, Count: 1})

	r := m.Game.Round
	hand := r.Hands[p.Seat]
	if len(hand) > 0 {
		drawn := hand[len(hand)-1]
		m.fireTo(playerID, Event{Type: EventPrivateDraw, Card: &drawn})
	}
	if d != nil {
		m.decision = d
		m.decisionFor = playerID
		m.fireTo(playerID, Event{Type: EventPrivateDrawChoice, Card: &d.Card})
	}
}

func (m *Match) handlePlay(playerID uuid.UUID, p *models.Player, idx int, payload map[string]interface{}) {
	cardIdx, ok := intField(payload, "card")
	if !ok {
		m.fireTo(playerID, errorEvent("action_play requires a card index"))
		return
	}
	color, _ := payload["color"].(string)

	played, err := m.Game.Play(idx, cardIdx, engine.Color(color))
	if err != nil {
		m.fireTo(playerID, errorEvent(err.Error()))
		return
	}
	m.clearDecision()
	m.logAction(playerID, "action_play", map[string]interface{}{
		"card":  played.String(),
		"color": color,
	})
	m.fire(Event{Type: EventPlayerPlay, User: &EventUser{ID: playerID}, Card: &played})
}

func (m *Match) handlePlayDrawn(playerID uuid.UUID, payload map[string]interface{}) {
	if m.decision == nil || m.decisionFor != playerID {
		m.fireTo(playerID, errorEvent("no draw decision pending for you"))
		return
	}
	color, _ := payload["color"].(string)
	played, err := m.decision.PlayNow(engine.Color(color))
	if err != nil {
		// Color errors leave the decision open for a retry.
		if errors.Is(err, engine.ErrColorRequired) || errors.Is(err, engine.ErrInvalidColor) {
			m.fireTo(playerID, errorEvent(err.Error()))
			return
		}
		m.clearDecision()
		m.fireTo(playerID, errorEvent(err.Error()))
		return
	}
	m.clearDecision()
	m.logAction(playerID, "action_play_drawn", map[string]interface{}{"card": played.String()})
	m.fire(Event{Type: EventPlayerPlay, User: &EventUser{ID: playerID}, Card: &played})
}

func (m *Match) handleKeepDrawn(playerID uuid.UUID) {
	if m.decision == nil || m.decisionFor != playerID {
		m.fireTo(playerID, errorEvent("no draw decision pending for you"))
		return
	}
	if err := m.decision.Keep(); err != nil {
		m.fireTo(playerID, errorEvent(err.Error()))
	}
	m.clearDecision()
	m.logAction(playerID, "action_keep_drawn", nil)
}

func (m *Match) handleCall(playerID uuid.UUID, p *models.Player, idx int) {
	if err := m.Game.CallLastCard(idx); err != nil {
		m.fireTo(playerID, errorEvent(err.Error()))
		return
	}
	m.logAction(playerID, "action_call", nil)
	m.fire(Event{Type: EventPlayerLastCard, User: &EventUser{ID: playerID}})
}

func (m *Match) handleNewRound(playerID uuid.UUID) {
	r := m.Game.Round
	if r != nil && !r.Finished {
		m.fireTo(playerID, errorEvent("round still in progress"))
		return
	}
	if err := m.startRound(m.nextStarter); err != nil {
		m.fireTo(playerID, errorEvent(err.Error()))
	}
}

// announcePenalty detects that the pre-action pending "last card"
// flag was resolved against its owner and broadcasts the penalty.
func (m *Match) announcePenalty(prePending, prePendingHand int) {
	if prePending < 0 {
		return
	}
	r := m.Game.Round
	if r.PendingCallerSeat == prePending {
		return // still pending
	}
	if len(r.Hands[prePending]) > prePendingHand {
		m.fire(Event{
			Type:  EventPlayerPenalty,
			User:  &EventUser{ID: m.Players[prePending].ID},
			Count: len(r.Hands[prePending]) - prePendingHand,
		})
	}
}

// announceProgress broadcasts eliminations, round end and the next
// turn after a successful action.
func (m *Match) announceProgress() {
	r := m.Game.Round
	for ; m.winnersSeen < len(r.Winners); m.winnersSeen++ {
		seat := r.Winners[m.winnersSeen]
		m.fire(Event{Type: EventPlayerOut, User: &EventUser{ID: m.Players[seat].ID}, Payload: map[string]interface{}{
			"place": m.winnersSeen + 1,
		}})
	}
	if r.Finished && !m.Finished {
		m.Finished = true
		m.finishRound()
		return
	}
	// While a draw decision is open the turn has not moved, so a fresh
	// turn announcement would be noise.
	if !r.Finished && m.decision == nil {
		m.firePlayerTurn()
	}
}

// finishRound broadcasts the final order and persists results.
// Callers must hold m.Mu.
func (m *Match) finishRound() {
	r := m.Game.Round
	winners := make([]uuid.UUID, 0, len(r.Winners))
	order := make([]string, 0, len(r.Winners))
	for _, seat := range r.Winners {
		winners = append(winners, m.Players[seat].ID)
		order = append(order, m.Players[seat].Name)
	}
	m.logAction(uuid.Nil, "round_end", map[string]interface{}{"order": order})
	m.fire(Event{Type: EventRoundEnd, Payload: map[string]interface{}{
		"winners": winners,
		"order":   order,
	}})

	players := append([]*models.Player(nil), m.Players...)
	matchID := m.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.RecordRoundResults(ctx, matchID, players, winners); err != nil {
			log.Printf("failed to record results for match %s: %v", matchID, err)
		}
	}()

	if m.OnMatchEnd != nil {
		m.OnMatchEnd(m.LobbyID, winners)
	}
}

// MarkConnected flags a player's connection state and, on connect,
// sends them a private sync snapshot.
func (m *Match) MarkConnected(playerID uuid.UUID, connected bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	p := m.playerByID(playerID)
	if p == nil {
		return
	}
	p.Connected = connected
	if connected {
		m.lastSeen[playerID] = time.Now()
		m.fireTo(playerID, Event{Type: EventPrivateSyncState, State: m.view(playerID)})
	}
}

// HasPlayer reports whether the user holds a seat at this table.
func (m *Match) HasPlayer(playerID uuid.UUID) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.playerByID(playerID) != nil
}

func (m *Match) playerByID(id uuid.UUID) *models.Player {
	for _, p := range m.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Match) clearDecision() {
	m.decision = nil
	m.decisionFor = uuid.Nil
}

func (m *Match) firePlayerTurn() {
	r := m.Game.Round
	if r == nil || r.Finished {
		return
	}
	m.fire(Event{Type: EventPlayerTurn, User: &EventUser{ID: m.Players[r.CurrentSeat()].ID}})
}

func (m *Match) fire(ev Event) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(ev)
	}
}

func (m *Match) fireTo(playerID uuid.UUID, ev Event) {
	if m.BroadcastToPlayerFn != nil && playerID != uuid.Nil {
		m.BroadcastToPlayerFn(playerID, ev)
	}
}

// logAction pushes the action onto the historian queue without
// blocking the turn.
func (m *Match) logAction(actor uuid.UUID, actionType string, payload map[string]interface{}) {
	m.actionIndex++
	record := cache.MatchActionRecord{
		MatchID:       m.ID,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := cache.PublishMatchAction(ctx, record); err != nil {
			log.Printf("failed to publish action %d for match %s: %v", record.ActionIndex, record.MatchID, err)
		}
	}()
}
