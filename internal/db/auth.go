package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrOperatorNotFound - 로그인 ID에 해당하는 운영자 없음
var ErrOperatorNotFound = errors.New("operator not found")

// Operator - 대시보드 API 운영자 계정
type Operator struct {
	ID           int64
	LoginID      string
	PasswordHash string
}

// EnsureAuthSchema - operators 테이블 생성
func (db *Postgres) EnsureAuthSchema() error {
	_, err := db.Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS operators (
			id            BIGSERIAL    PRIMARY KEY,
			login_id      TEXT         NOT NULL UNIQUE,
			password_hash TEXT         NOT NULL,
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// GetOperatorByLoginID - 로그인용 조회
func (db *Postgres) GetOperatorByLoginID(ctx context.Context, loginID string) (*Operator, error) {
	var op Operator
	err := db.Pool.QueryRow(ctx, `
		SELECT id, login_id, password_hash FROM operators WHERE login_id = $1;
	`, loginID).Scan(&op.ID, &op.LoginID, &op.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}

// CreateOperator - 운영자 계정 생성 (부트스트랩용)
func (db *Postgres) CreateOperator(ctx context.Context, loginID, passwordHash string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO operators (login_id, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (login_id) DO NOTHING
		RETURNING id;
	`, loginID, passwordHash).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// 이미 존재 - 기존 id 반환
		existing, lookupErr := db.GetOperatorByLoginID(ctx, loginID)
		if lookupErr != nil {
			return 0, lookupErr
		}
		return existing.ID, nil
	}
	return id, err
}
