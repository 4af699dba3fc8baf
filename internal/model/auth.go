package model

// AuthUser - 인증된 운영자
type AuthUser struct {
	OperatorID int64
	LoginID    string
}

// LoginRequest - 로그인 요청
type LoginRequest struct {
	LoginID  string `json:"loginId" binding:"required"`
	Password string `json:"password" binding:"required"`
}
