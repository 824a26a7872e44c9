package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/auth/password"
	"github.com/smallbiznis/notemart/internal/auth/token"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	refreshTokenBytes  = 32
	resetTokenBytes    = 32
	verificationTTL    = 15 * time.Minute
	passwordResetTTL   = time.Hour
	maxNameLength      = 120
	tokenTypeBearer    = "Bearer"
	verificationDigits = 1000000
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Cfg    config.Config
	Repo   domain.Repository
	Tokens *token.Service
	Mailer domain.Mailer `optional:"true"`
	Clock  clock.Clock   `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	tokens     *token.Service
	mailer     domain.Mailer
	clock      clock.Clock
	refreshTTL time.Duration
	baseURL    string
}

func New(p Params) domain.Service {
	refreshTTL := p.Cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tokens:     p.Tokens,
		mailer:     p.Mailer,
		clock:      clock.Or(p.Clock),
		refreshTTL: refreshTTL,
		baseURL:    strings.TrimRight(p.Cfg.PublicBaseURL, "/"),
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, domain.ErrInvalidPassword
	}

	code, err := newVerificationCode()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	expiresAt := now.Add(verificationTTL)
	user := &domain.User{
		ID:                    s.genID.Generate(),
		Email:                 email,
		Name:                  name,
		PasswordHash:          hashed,
		VerificationCode:      &code,
		VerificationExpiresAt: &expiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	var resp *domain.AuthResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateUser(ctx, tx, user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUserExists
			}
			return err
		}
		var err error
		resp, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	s.sendVerification(ctx, user, code)
	return resp, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(ctx, s.db, user)
}

// Refresh rotates a refresh token. The old token is revoked with a guarded
// update, so two concurrent refreshes of one token yield one new pair.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (*domain.AuthResponse, error) {
	raw := strings.TrimSpace(rawRefreshToken)
	if raw == "" {
		return nil, domain.ErrInvalidRefreshToken
	}

	var resp *domain.AuthResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.repo.FindRefreshToken(ctx, tx, hashToken(raw))
		if err != nil {
			return err
		}
		if stored == nil || stored.Revoked || !stored.ExpiresAt.After(s.clock.Now()) {
			return domain.ErrInvalidRefreshToken
		}
		revoked, err := s.repo.RevokeRefreshToken(ctx, tx, stored.ID)
		if err != nil {
			return err
		}
		if !revoked {
			return domain.ErrInvalidRefreshToken
		}

		user, err := s.repo.FindUserByID(ctx, tx, stored.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return domain.ErrInvalidRefreshToken
			}
			return err
		}
		resp, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, rawRefreshToken string) error {
	raw := strings.TrimSpace(rawRefreshToken)
	if raw == "" {
		return nil
	}
	stored, err := s.repo.FindRefreshToken(ctx, s.db, hashToken(raw))
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}
	_, err = s.repo.RevokeRefreshToken(ctx, s.db, stored.ID)
	return err
}

func (s *Service) Me(ctx context.Context, userID snowflake.ID) (*domain.UserResponse, error) {
	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.ErrInvalidCode
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.ErrInvalidCode
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidCode
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	if user.VerificationCode == nil || user.VerificationExpiresAt == nil ||
		!user.VerificationExpiresAt.After(s.clock.Now()) ||
		subtle.ConstantTimeCompare([]byte(*user.VerificationCode), []byte(code)) != 1 {
		return domain.ErrInvalidCode
	}

	return s.repo.UpdateUserFields(ctx, s.db, user.ID, map[string]any{
		"email_verified":          true,
		"verification_code":       nil,
		"verification_expires_at": nil,
		"updated_at":              s.clock.Now(),
	})
}

// ResendVerification never reveals whether the address is registered.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.ErrInvalidEmail
	}
	user, err := s.repo.FindUserByEmail(ctx, s.db, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	code, err := newVerificationCode()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if err := s.repo.UpdateUserFields(ctx, s.db, user.ID, map[string]any{
		"verification_code":       code,
		"verification_expires_at": now.Add(verificationTTL),
		"updated_at":              now,
	}); err != nil {
		return err
	}
	s.sendVerification(ctx, user, code)
	return nil
}

// ForgotPassword never reveals whether the address is registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.ErrInvalidEmail
	}
	user, err := s.repo.FindUserByEmail(ctx, s.db, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	raw, err := randomHex(resetTokenBytes)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if err := s.repo.InsertPasswordReset(ctx, s.db, &domain.PasswordReset{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(passwordResetTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(raw)
	if s.mailer == nil {
		s.log.Debug("password reset link", zap.String("user_id", user.ID.String()))
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		s.log.Warn("send password reset failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes the token once and signs the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		return domain.ErrInvalidResetToken
	}
	hashed, err := password.Hash(req.Password)
	if err != nil {
		return domain.ErrInvalidPassword
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		reset, err := s.repo.FindPasswordReset(ctx, tx, hashToken(raw))
		if err != nil {
			return err
		}
		if reset == nil || reset.UsedAt != nil || !reset.ExpiresAt.After(now) {
			return domain.ErrInvalidResetToken
		}
		consumed, err := s.repo.ConsumePasswordReset(ctx, tx, reset.ID, now)
		if err != nil {
			return err
		}
		if !consumed {
			return domain.ErrInvalidResetToken
		}
		if err := s.repo.UpdateUserFields(ctx, tx, reset.UserID, map[string]any{
			"password_hash": hashed,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		return s.repo.RevokeUserRefreshTokens(ctx, tx, reset.UserID)
	})
}

func (s *Service) AdminLogin(ctx context.Context, req domain.AdminLoginRequest) (*domain.AdminAuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	admin, err := s.repo.FindAdminByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, admin.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	access, _, err := s.tokens.Issue(token.KindAdmin, admin.ID.String())
	if err != nil {
		return nil, err
	}
	s.log.Info("admin login", zap.String("admin_id", admin.ID.String()))
	return &domain.AdminAuthResponse{
		Admin:       domain.AdminResponse{ID: admin.ID.String(), Username: admin.Username},
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.tokens.TTL(token.KindAdmin).Seconds()),
	}, nil
}

// EnsureAdmin creates the bootstrap admin when it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, rawPassword string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, domain.ErrInvalidCredentials
	}
	if _, err := s.repo.FindAdminByUsername(ctx, s.db, username); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return false, err
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return false, domain.ErrInvalidPassword
	}
	err = s.repo.CreateAdmin(ctx, s.db, &domain.Admin{
		ID:           s.genID.Generate(),
		Username:     username,
		PasswordHash: hashed,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) Authenticate(ctx context.Context, rawAccessToken string) (*domain.Principal, error) {
	return s.authenticate(token.KindUser, rawAccessToken)
}

func (s *Service) AuthenticateAdmin(ctx context.Context, rawAccessToken string) (*domain.Principal, error) {
	return s.authenticate(token.KindAdmin, rawAccessToken)
}

func (s *Service) AuthenticateDownload(ctx context.Context, rawLinkToken, orderID, noteID string) (*domain.Principal, error) {
	userID, err := s.tokens.VerifyDownload(rawLinkToken, orderID, noteID)
	if err != nil {
		if errors.Is(err, token.ErrLinkMismatch) {
			return nil, err
		}
		return nil, domain.ErrInvalidToken
	}
	return &domain.Principal{ID: userID, Kind: string(token.KindUser)}, nil
}

func (s *Service) authenticate(kind token.Kind, raw string) (*domain.Principal, error) {
	claims, err := s.tokens.Verify(kind, raw)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	id, err := snowflake.ParseString(claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Principal{ID: id, Kind: string(kind)}, nil
}

func (s *Service) issue(ctx context.Context, tx *gorm.DB, user *domain.User) (*domain.AuthResponse, error) {
	access, _, err := s.tokens.Issue(token.KindUser, user.ID.String())
	if err != nil {
		return nil, err
	}
	refresh, err := randomHex(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.repo.InsertRefreshToken(ctx, tx, &domain.RefreshToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		User:         toUserResponse(user),
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.tokens.TTL(token.KindUser).Seconds()),
	}, nil
}

func (s *Service) sendVerification(ctx context.Context, user *domain.User, code string) {
	if s.mailer == nil {
		s.log.Debug("verification email skipped, no mailer", zap.String("user_id", user.ID.String()))
		return
	}
	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Name, code); err != nil {
		s.log.Warn("send verification code failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func toUserResponse(user *domain.User) domain.UserResponse {
	return domain.UserResponse{
		ID:            user.ID.String(),
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationDigits))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
