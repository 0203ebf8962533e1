package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ClaimPeriod захватывает период для задачи job на время lease. Запись
// переписывается более поздним периодом либо тем же незавершённым периодом,
// аренда которого истекла или снята. Завершённый период повторно не захватывается.
func (s *Storage) ClaimPeriod(ctx context.Context, job, period string, lease time.Duration) (bool, error) {
	const op = "storage.ClaimPeriod"

	query := `
		INSERT INTO job_watermarks (job, period, completed, claimed_until, updated_at)
		VALUES ($1, $2, FALSE, NOW() + make_interval(secs => $3), NOW())
		ON CONFLICT (job) DO UPDATE
		SET period = EXCLUDED.period, completed = FALSE,
			claimed_until = EXCLUDED.claimed_until, updated_at = NOW()
		WHERE job_watermarks.period < EXCLUDED.period
			OR (job_watermarks.period = EXCLUDED.period
				AND NOT job_watermarks.completed
				AND (job_watermarks.claimed_until IS NULL OR job_watermarks.claimed_until <= NOW()))
		RETURNING period`
	var claimed string
	err := s.DB.QueryRowxContext(ctx, query, job, period, lease.Seconds()).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(op, err)
	}
	return true, nil
}

// ReleasePeriod снимает аренду с незавершённого периода, чтобы следующий
// запуск мог повторить проход сразу.
func (s *Storage) ReleasePeriod(ctx context.Context, job, period string) error {
	const op = "storage.ReleasePeriod"

	_, err := s.DB.ExecContext(ctx,
		`UPDATE job_watermarks SET claimed_until = NULL, updated_at = NOW()
		WHERE job = $1 AND period = $2 AND NOT completed`, job, period)
	if err != nil {
		return mapError(op, err)
	}
	return nil
}

// CompletePeriod отмечает период задачи завершённым.
func (s *Storage) CompletePeriod(ctx context.Context, job, period string) error {
	const op = "storage.CompletePeriod"

	_, err := s.DB.ExecContext(ctx,
		`UPDATE job_watermarks SET completed = TRUE, claimed_until = NULL, updated_at = NOW()
		WHERE job = $1 AND period = $2`, job, period)
	if err != nil {
		return mapError(op, err)
	}
	return nil
}
