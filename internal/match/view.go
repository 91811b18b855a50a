// internal/match/view.go
package match

import (
	"github.com/google/uuid"

	"github.com/lastcard-club/lastcard/internal/engine"
)

// SeatView is the per-player slice of a RoundView from the
// perspective of a requesting user. Hands stay hidden except for the
// viewer's own.
type SeatView struct {
	PlayerID      uuid.UUID     `json:"player_id"`
	Name          string        `json:"name"`
	Seat          int           `json:"seat"`
	HandSize      int           `json:"hand_size"`
	Connected     bool          `json:"connected"`
	IsCurrentTurn bool          `json:"is_current_turn"`
	Out           bool          `json:"out"`
	Hand          []engine.Card `json:"hand,omitempty"` // viewer only
}

// RoundView is the obfuscated snapshot sent on connect/reconnect and
// embedded in sync events.
type RoundView struct {
	MatchID         uuid.UUID    `json:"match_id"`
	Started         bool         `json:"started"`
	Finished        bool         `json:"finished"`
	Clockwise       bool         `json:"clockwise"`
	CurrentPlayerID uuid.UUID    `json:"current_player_id,omitempty"`
	DrawPileSize    int          `json:"draw_pile_size"`
	DiscardSize     int          `json:"discard_size"`
	DiscardTop      *engine.Card `json:"discard_top,omitempty"`
	PendingCallerID uuid.UUID    `json:"pending_caller_id,omitempty"`
	Winners         []uuid.UUID  `json:"winners,omitempty"`
	Seats           []SeatView   `json:"seats"`
}

// View generates a snapshot of the current round for the requesting
// user. Callers must hold m.Mu.
func (m *Match) view(forUser uuid.UUID) *RoundView {
	v := &RoundView{
		MatchID: m.ID,
		Started: m.Started,
	}
	r := m.Game.Round
	if r == nil {
		for _, p := range m.Players {
			v.Seats = append(v.Seats, SeatView{
				PlayerID:  p.ID,
				Name:      p.Name,
				Seat:      p.Seat,
				Connected: p.Connected,
			})
		}
		return v
	}

	v.Finished = r.Finished
	v.Clockwise = r.Clockwise
	v.DrawPileSize = len(r.DrawPile)
	v.DiscardSize = len(r.DiscardPile)
	if len(r.DiscardPile) > 0 {
		top := r.Top()
		v.DiscardTop = &top
	}
	if !r.Finished {
		v.CurrentPlayerID = m.Players[r.CurrentSeat()].ID
	}
	if r.PendingCallerSeat >= 0 {
		v.PendingCallerID = m.Players[r.PendingCallerSeat].ID
	}
	for _, seat := range r.Winners {
		v.Winners = append(v.Winners, m.Players[seat].ID)
	}

	for _, p := range m.Players {
		sv := SeatView{
			PlayerID:      p.ID,
			Name:          p.Name,
			Seat:          p.Seat,
			HandSize:      len(r.Hands[p.Seat]),
			Connected:     p.Connected,
			IsCurrentTurn: !r.Finished && r.CurrentSeat() == p.Seat,
			Out:           r.IndexOfSeat(p.Seat) < 0,
		}
		if p.ID == forUser {
			sv.Hand = append([]engine.Card(nil), r.Hands[p.Seat]...)
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}

// View is the exported, locking form of view.
func (m *Match) View(forUser uuid.UUID) *RoundView {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.view(forUser)
}
