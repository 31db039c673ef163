package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"star-auth/internal/domain"
)

// ErrSessionNotFound indica que no existe una sesion abierta con ese id.
var ErrSessionNotFound = errors.New("no active session found")

// SessionRepository registra tramos login-logout por usuario. Open y Close
// reciben el Querier del llamador para participar de su transaccion.
type SessionRepository interface {
	Open(ctx context.Context, q Querier, userID string, info domain.NetworkContext) (domain.Session, error)
	Close(ctx context.Context, q Querier, sessionID int64, info domain.NetworkContext) error
	DeleteOlderThan(ctx context.Context, q Querier, cutoff time.Time) (int64, error)
}

// PgSessionRepository implementa SessionRepository sobre pgx.
type PgSessionRepository struct{}

func NewPgSessionRepository() *PgSessionRepository {
	return &PgSessionRepository{}
}

func (r *PgSessionRepository) Open(ctx context.Context, q Querier, userID string, info domain.NetworkContext) (domain.Session, error) {
	loginInfo, err := json.Marshal(info)
	if err != nil {
		return domain.Session{}, err
	}

	const query = `
		INSERT INTO user_sessions (user_id, login_at, login_info)
		VALUES ($1, $2, $3)
		RETURNING session_id
	`
	session := domain.Session{
		UserID:    userID,
		LoginAt:   time.Now().UTC(),
		LoginInfo: info,
	}
	if err := q.QueryRow(ctx, query, userID, session.LoginAt, loginInfo).Scan(&session.SessionID); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Close cierra la sesion una sola vez: solo toca filas con logout_at nulo,
// asi un segundo cierre no pisa el registro de auditoria del primero.
func (r *PgSessionRepository) Close(ctx context.Context, q Querier, sessionID int64, info domain.NetworkContext) error {
	logoutInfo, err := json.Marshal(info)
	if err != nil {
		return err
	}

	const query = `
		UPDATE user_sessions
		SET logout_at = $2, logout_info = $3
		WHERE session_id = $1 AND logout_at IS NULL
	`
	tag, err := q.Exec(ctx, query, sessionID, time.Now().UTC(), logoutInfo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteOlderThan borra sesiones cuyo login es anterior al corte. Las
// sesiones se retienen para auditoria; esto solo corre bajo una politica
// de retencion explicita.
func (r *PgSessionRepository) DeleteOlderThan(ctx context.Context, q Querier, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE login_at < $1`
	tag, err := q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
