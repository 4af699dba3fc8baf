// 대시보드 API 인증 서비스 정의
//
// 로컬 운영자 계정(bcrypt + HS256 JWT)을 기본으로 하고,
// OIDC_ISSUER가 설정되면 외부 IdP 토큰도 함께 받는다.

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

const (
	minLoginIDLength  = 3
	minPasswordLength = 8
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMisconfigured = errors.New("auth config invalid")
)

// operatorRepo - DB 인터페이스 (auth 전용)
type operatorRepo interface {
	GetOperatorByLoginID(ctx context.Context, loginID string) (*db.Operator, error)
	CreateOperator(ctx context.Context, loginID, passwordHash string) (int64, error)
}

// AuthService - 로그인/토큰 검증
type AuthService struct {
	repo      operatorRepo
	jwtSecret []byte
	accessTTL time.Duration

	oidcVerifier *oidc.IDTokenVerifier
}

type authClaims struct {
	LoginID string `json:"loginId"`
	jwt.RegisteredClaims
}

func NewAuthService(repo operatorRepo, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	s := &AuthService{
		repo:      repo,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: accessTTL,
	}

	if cfg.OIDCIssuer != "" {
		provider, err := oidc.NewProvider(context.Background(), cfg.OIDCIssuer)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to discover OIDC issuer: %v", ErrMisconfigured, err)
		}
		s.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCAudience})
	}

	return s, nil
}

// EnsureOperator - 부트스트랩 운영자 계정 생성 (이미 있으면 무시)
func (s *AuthService) EnsureOperator(ctx context.Context, loginID, password string) error {
	if strings.TrimSpace(loginID) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	if _, err := s.repo.GetOperatorByLoginID(ctx, loginID); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrOperatorNotFound) {
		return err
	}

	if err := validateCredentials(loginID, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.repo.CreateOperator(ctx, loginID, string(hash))
	return err
}

// Login - 자격 증명 검증 후 액세스 토큰 발급
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (string, *model.AuthUser, error) {
	if err := validateCredentials(req.LoginID, req.Password); err != nil {
		return "", nil, err
	}

	op, err := s.repo.GetOperatorByLoginID(ctx, req.LoginID)
	if err != nil {
		if errors.Is(err, db.ErrOperatorNotFound) {
			return "", nil, ErrUnauthorized
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, ErrUnauthorized
	}

	token, err := s.issueAccessToken(op)
	if err != nil {
		return "", nil, err
	}

	return token, &model.AuthUser{OperatorID: op.ID, LoginID: op.LoginID}, nil
}

// VerifyToken - Bearer 토큰 검증 후 사용자 반환
// 로컬 HS256 토큰을 먼저 시도하고, 실패하면 OIDC 토큰으로 검증한다.
func (s *AuthService) VerifyToken(ctx context.Context, raw string) (*model.AuthUser, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err == nil && token.Valid {
		return &model.AuthUser{LoginID: claims.LoginID}, nil
	}

	if s.oidcVerifier != nil {
		idToken, oidcErr := s.oidcVerifier.Verify(ctx, raw)
		if oidcErr == nil {
			var oidcClaims struct {
				Email             string `json:"email"`
				PreferredUsername string `json:"preferred_username"`
			}
			if err := idToken.Claims(&oidcClaims); err == nil {
				loginID := oidcClaims.PreferredUsername
				if loginID == "" {
					loginID = oidcClaims.Email
				}
				if loginID == "" {
					loginID = idToken.Subject
				}
				return &model.AuthUser{LoginID: loginID}, nil
			}
		}
	}

	return nil, ErrUnauthorized
}

func (s *AuthService) issueAccessToken(op *db.Operator) (string, error) {
	now := time.Now()
	claims := authClaims{
		LoginID: op.LoginID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", op.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func validateCredentials(loginID, password string) error {
	if len(strings.TrimSpace(loginID)) < minLoginIDLength {
		return fmt.Errorf("%w: login_id must be at least %d characters", ErrInvalidInput, minLoginIDLength)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}
