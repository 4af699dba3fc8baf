// Alert 저장소
//
// 상태 전이는 전부 단일 행 조건부 업데이트(compare-and-swap)로만 수행:
//   - WHERE 절에 기대하는 이전 status와 expires_at > NOW()를 포함
//   - RowsAffected == 0이면 재조회로 NotFound / AlreadyDecided / WrongStatus 구분
//
// 만료 처리는 두 겹:
//   - 모든 조회/전이 쿼리가 expires_at을 확인 (만료된 행은 NotFound로 취급)
//   - ExpireOverdue 스윕이 pending 행을 expired로 전이 후 오래된 행 삭제

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/domain-sentry/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrAlertNotFound - alert_id가 없거나 이미 만료됨
	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlreadyDecided - pending이 아닌 Alert에 결정 시도 (동시성 가드)
	ErrAlreadyDecided = errors.New("alert already decided")

	// ErrWrongStatus - 기대한 이전 상태가 아님 (executor 전이 가드)
	ErrWrongStatus = errors.New("alert is not in the expected status")
)

// EnsureAlertSchema - alerts 테이블 생성
func (db *Postgres) EnsureAlertSchema() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			error_detail TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			diagnosis_session_id TEXT NOT NULL DEFAULT '',
			diagnosis_summary TEXT NOT NULL DEFAULT '',
			diagnosis_full_ref TEXT NOT NULL DEFAULT '',
			decision_by TEXT NOT NULL DEFAULT '',
			decision_at TIMESTAMPTZ,
			decision_comment TEXT NOT NULL DEFAULT '',
			execution_log_ref TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS alerts_target_status_idx ON alerts(target, status)`,
		`CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts(status)`,
		`CREATE INDEX IF NOT EXISTS alerts_detected_at_idx ON alerts(detected_at DESC)`,
		`CREATE INDEX IF NOT EXISTS alerts_expires_at_idx ON alerts(expires_at)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(context.Background(), query); err != nil {
			return err
		}
	}
	return nil
}

// CreateAlert - Detector가 감지한 Alert 저장 (항상 pending으로 시작)
func (db *Postgres) CreateAlert(ctx context.Context, alert model.Alert) error {
	query := `
		INSERT INTO alerts (
			alert_id, target, detected_at, error_detail, status,
			diagnosis_session_id, diagnosis_summary, diagnosis_full_ref,
			expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`

	_, err := db.Pool.Exec(ctx, query,
		alert.AlertID,
		alert.Target,
		alert.DetectedAt,
		alert.ErrorDetail,
		string(model.StatusPending),
		alert.DiagnosisSessionID,
		alert.DiagnosisSummary,
		alert.DiagnosisFullRef,
		alert.ExpiresAt,
	)
	return err
}

// GetAlert - alert_id로 단건 조회 (만료된 행은 NotFound)
func (db *Postgres) GetAlert(ctx context.Context, alertID string) (*model.Alert, error) {
	query := `
		SELECT alert_id, target, detected_at, error_detail, status,
		       diagnosis_session_id, diagnosis_summary, diagnosis_full_ref,
		       decision_by, decision_at, decision_comment,
		       execution_log_ref, expires_at, created_at, updated_at
		FROM alerts
		WHERE alert_id = $1 AND expires_at > NOW()
	`

	row := db.Pool.QueryRow(ctx, query, alertID)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// GetAlertList - Alert 목록 조회 (최신순)
func (db *Postgres) GetAlertList(ctx context.Context) ([]model.AlertListItem, error) {
	query := `
		SELECT alert_id, target, status, detected_at, decision_by, decision_at
		FROM alerts
		ORDER BY detected_at DESC
	`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.AlertListItem
	for rows.Next() {
		var item model.AlertListItem
		var decisionBy string
		var decisionAt *time.Time
		if err := rows.Scan(&item.AlertID, &item.Target, &item.Status, &item.DetectedAt, &decisionBy, &decisionAt); err != nil {
			return nil, err
		}
		item.DecisionBy = decisionBy
		item.DecisionAt = decisionAt
		list = append(list, item)
	}

	if list == nil {
		list = []model.AlertListItem{}
	}
	return list, nil
}

// HasPendingAlert - 같은 target의 미결정 Alert 존재 여부 (중복 감지 억제용)
func (db *Postgres) HasPendingAlert(ctx context.Context, target string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE target = $1 AND status = 'pending' AND expires_at > NOW()
		)
	`
	err := db.Pool.QueryRow(ctx, query, target).Scan(&exists)
	return exists, err
}

// Decide - pending → approved/rejected 조건부 전이
//
// 가드와 결정 필드 기록이 한 문장으로 수행되므로, 같은 alert_id에 대한
// 동시 결정 시도는 최대 하나만 성공한다. 패자는 ErrAlreadyDecided를 받는다.
func (db *Postgres) Decide(ctx context.Context, alertID string, status model.AlertStatus, by, comment string, at time.Time) (*model.Alert, error) {
	if status != model.StatusApproved && status != model.StatusRejected {
		return nil, fmt.Errorf("invalid decision status: %s", status)
	}

	query := `
		UPDATE alerts
		SET status = $2, decision_by = $3, decision_at = $4, decision_comment = $5, updated_at = NOW()
		WHERE alert_id = $1 AND status = 'pending' AND expires_at > NOW()
	`

	tag, err := db.Pool.Exec(ctx, query, alertID, string(status), by, at, comment)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, db.explainTransitionFailure(ctx, alertID, ErrAlreadyDecided)
	}

	return db.GetAlert(ctx, alertID)
}

// MarkExecuting - approved → executing 조건부 전이
func (db *Postgres) MarkExecuting(ctx context.Context, alertID string) error {
	query := `
		UPDATE alerts
		SET status = 'executing', updated_at = NOW()
		WHERE alert_id = $1 AND status = 'approved' AND expires_at > NOW()
	`

	tag, err := db.Pool.Exec(ctx, query, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.explainTransitionFailure(ctx, alertID, ErrWrongStatus)
	}
	return nil
}

// FinishExecution - executing → completed/failed 조건부 전이 (터미널, 단 한 번)
func (db *Postgres) FinishExecution(ctx context.Context, alertID string, status model.AlertStatus, logRef string) error {
	if status != model.StatusCompleted && status != model.StatusFailed {
		return fmt.Errorf("invalid terminal status: %s", status)
	}

	query := `
		UPDATE alerts
		SET status = $2, execution_log_ref = $3, updated_at = NOW()
		WHERE alert_id = $1 AND status = 'executing'
	`

	tag, err := db.Pool.Exec(ctx, query, alertID, string(status), logRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.explainTransitionFailure(ctx, alertID, ErrWrongStatus)
	}
	return nil
}

// ListStuckApproved - 결정 후 olderThan이 지나도록 실행이 시작되지 않은
// approved 행 조회 (유실된 실행 지시의 재발행용)
func (db *Postgres) ListStuckApproved(ctx context.Context, olderThan time.Duration) ([]model.Alert, error) {
	query := `
		SELECT alert_id, target, detected_at, error_detail, status,
		       diagnosis_session_id, diagnosis_summary, diagnosis_full_ref,
		       decision_by, decision_at, decision_comment,
		       execution_log_ref, expires_at, created_at, updated_at
		FROM alerts
		WHERE status = 'approved' AND decision_at <= NOW() - $1::interval AND expires_at > NOW()
		ORDER BY decision_at
	`

	rows, err := db.Pool.Query(ctx, query, olderThan.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stuck []model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		stuck = append(stuck, *alert)
	}
	return stuck, rows.Err()
}

// ExpireOverdue - 만료 스윕
// pending인 채 expires_at이 지난 행은 expired로 전이하고,
// 만료 후 retention이 지난 행은 삭제한다 (스토리지 증가 억제)
func (db *Postgres) ExpireOverdue(ctx context.Context, retention time.Duration) (int64, error) {
	expireQuery := `
		UPDATE alerts
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at <= NOW()
	`
	tag, err := db.Pool.Exec(ctx, expireQuery)
	if err != nil {
		return 0, err
	}
	expired := tag.RowsAffected()

	purgeQuery := `DELETE FROM alerts WHERE expires_at <= NOW() - $1::interval`
	if _, err := db.Pool.Exec(ctx, purgeQuery, retention.String()); err != nil {
		return expired, err
	}
	return expired, nil
}

// explainTransitionFailure - 조건부 업데이트가 0행이었을 때 원인 구분
func (db *Postgres) explainTransitionFailure(ctx context.Context, alertID string, guardErr error) error {
	var status string
	query := `SELECT status FROM alerts WHERE alert_id = $1 AND expires_at > NOW()`
	err := db.Pool.QueryRow(ctx, query, alertID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlertNotFound
		}
		return err
	}
	return fmt.Errorf("%w (current status: %s)", guardErr, status)
}

func scanAlert(row pgx.Row) (*model.Alert, error) {
	var a model.Alert
	var status string
	err := row.Scan(
		&a.AlertID, &a.Target, &a.DetectedAt, &a.ErrorDetail, &status,
		&a.DiagnosisSessionID, &a.DiagnosisSummary, &a.DiagnosisFullRef,
		&a.DecisionBy, &a.DecisionAt, &a.DecisionComment,
		&a.ExecutionLogRef, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = model.AlertStatus(status)
	return &a, nil
}
