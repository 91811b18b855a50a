package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lastcard-club/lastcard/internal/models"
)

// InsertLobby creates a new lobby row in the DB.
func InsertLobby(ctx context.Context, lobby *models.Lobby) error {
	if DB == nil {
		return nil
	}
	q := `
	INSERT INTO lobbies (id, host_user_id, type, auto_start)
	VALUES ($1, $2, $3, $4)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, lobby.ID, lobby.HostUserID, lobby.Type, lobby.AutoStart)
		return err
	})
}

// GetLobby fetches a lobby by ID.
func GetLobby(ctx context.Context, lobbyID uuid.UUID) (*models.Lobby, error) {
	if DB == nil {
		return nil, pgx.ErrNoRows
	}
	var l models.Lobby
	q := `
	SELECT id, host_user_id, type, auto_start
	FROM lobbies
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, lobbyID).Scan(&l.ID, &l.HostUserID, &l.Type, &l.AutoStart)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteLobby removes a lobby row once it is empty or its match ended.
func DeleteLobby(ctx context.Context, lobbyID uuid.UUID) error {
	if DB == nil {
		return nil
	}
	_, err := DB.Exec(ctx, `DELETE FROM lobbies WHERE id = $1`, lobbyID)
	return err
}
