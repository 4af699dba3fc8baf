package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

// fakeOperatorRepo - 운영자 저장소 대역
type fakeOperatorRepo struct {
	operators map[string]*db.Operator
	nextID    int64
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{operators: make(map[string]*db.Operator), nextID: 1}
}

func (r *fakeOperatorRepo) GetOperatorByLoginID(ctx context.Context, loginID string) (*db.Operator, error) {
	op, ok := r.operators[loginID]
	if !ok {
		return nil, db.ErrOperatorNotFound
	}
	return op, nil
}

func (r *fakeOperatorRepo) CreateOperator(ctx context.Context, loginID, passwordHash string) (int64, error) {
	id := r.nextID
	r.nextID++
	r.operators[loginID] = &db.Operator{ID: id, LoginID: loginID, PasswordHash: passwordHash}
	return id, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeOperatorRepo) {
	t.Helper()
	repo := newFakeOperatorRepo()
	svc, err := NewAuthService(repo, config.AuthConfig{
		JWTSecret:    "test-secret",
		JWTAccessTTL: "30m",
	})
	if err != nil {
		t.Fatalf("NewAuthService() error = %v", err)
	}
	return svc, repo
}

func TestLoginAndVerifyToken(t *testing.T) {
	svc, repo := newTestAuthService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	repo.CreateOperator(context.Background(), "operator1", string(hash))

	token, user, err := svc.Login(context.Background(), model.LoginRequest{LoginID: "operator1", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.LoginID != "operator1" {
		t.Fatalf("login_id = %s", user.LoginID)
	}

	verified, err := svc.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if verified.LoginID != "operator1" {
		t.Fatalf("verified login_id = %s", verified.LoginID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo := newTestAuthService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	repo.CreateOperator(context.Background(), "operator1", string(hash))

	_, _, err := svc.Login(context.Background(), model.LoginRequest{LoginID: "operator1", Password: "wrong-horse"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginUnknownOperator(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Login(context.Background(), model.LoginRequest{LoginID: "nobody99", Password: "irrelevant-pass"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginValidatesInput(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Login(context.Background(), model.LoginRequest{LoginID: "ab", Password: "long-enough-pass"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short login_id: error = %v, want ErrInvalidInput", err)
	}

	_, _, err = svc.Login(context.Background(), model.LoginRequest{LoginID: "operator1", Password: "short"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: error = %v, want ErrInvalidInput", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.VerifyToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.VerifyToken(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService(newFakeOperatorRepo(), config.AuthConfig{JWTAccessTTL: "30m"}); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("error = %v, want ErrMisconfigured", err)
	}
}
