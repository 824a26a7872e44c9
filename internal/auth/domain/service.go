package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, rawRefreshToken string) error
	Me(ctx context.Context, userID snowflake.ID) (*UserResponse, error)

	VerifyEmail(ctx context.Context, req VerifyEmailRequest) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error

	AdminLogin(ctx context.Context, req AdminLoginRequest) (*AdminAuthResponse, error)
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)

	// Authenticate resolves a user access token.
	Authenticate(ctx context.Context, rawAccessToken string) (*Principal, error)
	// AuthenticateAdmin resolves an admin access token.
	AuthenticateAdmin(ctx context.Context, rawAccessToken string) (*Principal, error)
	// AuthenticateDownload resolves a download link token issued for orderID
	// and noteID.
	AuthenticateDownload(ctx context.Context, rawLinkToken, orderID, noteID string) (*Principal, error)
}

// Mailer delivers account emails. It is optional; without it codes and
// links are only logged at debug level.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

type Principal struct {
	ID    snowflake.ID
	Kind  string
	Email string
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
}

type AdminResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type AdminAuthResponse struct {
	Admin       AdminResponse `json:"admin"`
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
}
