package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository { return &sessionRepoPG{pool: pool} }

const sessionCols = `id, patient_ref, status, current_domain, progress,
	risk_level, risk_score, fraud_score, results, created_at, updated_at, completed_at`

func (r *sessionRepoPG) scan(row pgx.Row) (*IntakeSession, error) {
	var s IntakeSession
	err := row.Scan(&s.ID, &s.PatientRef, &s.Status, &s.CurrentDomain, &s.Progress,
		&s.RiskLevel, &s.RiskScore, &s.FraudScore, &s.Results, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *IntakeSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO intake_session (id, patient_ref, status, current_domain, progress, fraud_score)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.PatientRef, s.Status, s.CurrentDomain, s.Progress, s.FraudScore)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*IntakeSession, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+sessionCols+` FROM intake_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *IntakeSession) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE intake_session SET status=$2, current_domain=$3, progress=$4,
			risk_level=$5, risk_score=$6, fraud_score=$7, results=$8,
			completed_at=$9, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Status, s.CurrentDomain, s.Progress,
		s.RiskLevel, s.RiskScore, s.FraudScore, s.Results, s.CompletedAt)
	return err
}

func (r *sessionRepoPG) List(ctx context.Context, limit, offset int) ([]*IntakeSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM intake_session`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM intake_session
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *sessionRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*IntakeSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM intake_session WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM intake_session WHERE status = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *sessionRepoPG) ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]*IntakeSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM intake_session WHERE patient_ref = $1`, patientRef).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM intake_session WHERE patient_ref = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientRef, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *sessionRepoPG) collect(rows pgx.Rows, total int) ([]*IntakeSession, int, error) {
	var items []*IntakeSession
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

type responseRepoPG struct{ pool *pgxpool.Pool }

func NewResponseRepoPG(pool *pgxpool.Pool) ResponseRepository { return &responseRepoPG{pool: pool} }

func (r *responseRepoPG) Append(ctx context.Context, resp *IntakeResponse) error {
	if resp.ID == uuid.Nil {
		resp.ID = uuid.New()
	}
	// seq is assigned atomically per session so corrections keep their
	// submission order in the replay log.
	return r.pool.QueryRow(ctx, `
		INSERT INTO intake_response (id, session_id, seq, question_id, value, presented_at, responded_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM intake_response WHERE session_id = $2),
			$3, $4, $5, $6)
		RETURNING seq`,
		resp.ID, resp.SessionID, resp.QuestionID, resp.Value, resp.PresentedAt, resp.RespondedAt).
		Scan(&resp.Seq)
}

func (r *responseRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*IntakeResponse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, seq, question_id, value, presented_at, responded_at
		FROM intake_response WHERE session_id = $1 ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*IntakeResponse
	for rows.Next() {
		var resp IntakeResponse
		if err := rows.Scan(&resp.ID, &resp.SessionID, &resp.Seq, &resp.QuestionID,
			&resp.Value, &resp.PresentedAt, &resp.RespondedAt); err != nil {
			return nil, err
		}
		items = append(items, &resp)
	}
	return items, rows.Err()
}
