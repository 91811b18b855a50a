// internal/handlers/lobby.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lastcard-club/lastcard/internal/auth"
	"github.com/lastcard-club/lastcard/internal/database"
	"github.com/lastcard-club/lastcard/internal/lobby"
	"github.com/lastcard-club/lastcard/internal/models"
)

var validLobbyTypes = map[string]bool{
	"private": true,
	"public":  true,
}

// CreateLobbyHandler builds an in-memory lobby hosted by the caller and
// records a row for it so abandoned lobbies can be audited later.
func CreateLobbyHandler(ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		token := extractCookieToken(cookie, "auth_token")

		userIDStr, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id in token", http.StatusBadRequest)
			return
		}

		lob := lobby.New(userID)

		if err := json.NewDecoder(r.Body).Decode(lob); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}

		if lob.Type != "" && !validLobbyTypes[lob.Type] {
			http.Error(w, "invalid lobby type", http.StatusBadRequest)
			return
		}

		lob.OnEmpty = func(lobbyID uuid.UUID) {
			ms.LobbyStore.Delete(lobbyID)
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := database.DeleteLobby(ctx, lobbyID); err != nil {
					log.Printf("failed to delete lobby row %s: %v", lobbyID, err)
				}
			}()
		}
		ms.LobbyStore.Add(lob)

		row := &models.Lobby{
			ID:         lob.ID,
			HostUserID: lob.HostUserID,
			Type:       lob.Type,
			AutoStart:  lob.Settings.AutoStart,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.InsertLobby(ctx, row); err != nil {
				log.Printf("failed to persist lobby row %s: %v", row.ID, err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lob)
	}
}

// ListLobbiesHandler returns the in-memory lobby list.
func ListLobbiesHandler(ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		token := extractCookieToken(cookie, "auth_token")
		if _, err := auth.AuthenticateJWT(token); err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ms.LobbyStore.List())
	}
}
