package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/auth/repository"
	"github.com/smallbiznis/notemart/internal/auth/token"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string
	links map[string]string
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{codes: map[string]string{}, links: map[string]string{}}
}

func (m *capturingMailer) SendVerificationCode(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *capturingMailer) SendPasswordReset(_ context.Context, to, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[to] = link
	return nil
}

func (m *capturingMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func (m *capturingMailer) link(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[to]
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	clock  *clock.FakeClock
	mailer *capturingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.User{},
		&domain.Admin{},
		&domain.RefreshToken{},
		&domain.PasswordReset{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	tokens := token.NewWithSecrets([]byte("user-secret"), []byte("admin-secret"), 15*time.Minute, time.Hour, fake)
	mailer := newCapturingMailer()

	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Cfg:    config.Config{PublicBaseURL: "https://notes.example.com/", RefreshTokenTTL: 24 * time.Hour},
		Repo:   repository.Provide(),
		Tokens: tokens,
		Mailer: mailer,
		Clock:  fake,
	}).(*Service)

	return &fixture{svc: svc, db: conn, clock: fake, mailer: mailer}
}

func (f *fixture) register(t *testing.T, email, pw string) *domain.AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Email:    email,
		Password: pw,
		Name:     "Asha",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesTokensAndNormalizesEmail(t *testing.T) {
	f := newFixture(t)

	resp := f.register(t, "  Asha@Example.COM ", "secret123")
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.False(t, resp.User.EmailVerified)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Len(t, f.mailer.code("asha@example.com"), 6)

	principal, err := f.svc.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, principal.ID.String())
	assert.Equal(t, string(token.KindUser), principal.Kind)

	var stored domain.RefreshToken
	require.NoError(t, f.db.First(&stored).Error)
	assert.NotEqual(t, resp.RefreshToken, stored.TokenHash)
	assert.Equal(t, hashToken(resp.RefreshToken), stored.TokenHash)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.RegisterRequest
		want error
	}{
		{"bad email", domain.RegisterRequest{Email: "not-an-email", Password: "secret123", Name: "A"}, domain.ErrInvalidEmail},
		{"short password", domain.RegisterRequest{Email: "a@example.com", Password: "123", Name: "A"}, domain.ErrInvalidPassword},
		{"blank name", domain.RegisterRequest{Email: "a@example.com", Password: "secret123", Name: "  "}, domain.ErrInvalidName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&domain.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dup@example.com", "secret123")

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Email:    "DUP@example.com",
		Password: "another123",
		Name:     "Other",
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "login@example.com", "secret123")

	resp, err := f.svc.Login(ctx, domain.LoginRequest{Email: "LOGIN@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", resp.User.Email)

	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "login@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "rotate@example.com", "secret123")

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsExpiredAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.register(t, "expire@example.com", "secret123")

	_, err := f.svc.Refresh(ctx, "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	_, err = f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.register(t, "logout@example.com", "secret123")

	require.NoError(t, f.svc.Logout(ctx, resp.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, resp.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, "unknown"))

	_, err := f.svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.register(t, "verify@example.com", "secret123")
	code := f.mailer.code("verify@example.com")
	require.NotEmpty(t, code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err := f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "verify@example.com", Code: wrong})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	require.NoError(t, f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "verify@example.com", Code: code}))

	principal, err := f.svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	me, err := f.svc.Me(ctx, principal.ID)
	require.NoError(t, err)
	assert.True(t, me.EmailVerified)

	// already verified is a no-op
	assert.NoError(t, f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "verify@example.com", Code: code}))
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "late@example.com", "secret123")
	code := f.mailer.code("late@example.com")

	f.clock.Advance(16 * time.Minute)
	err := f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "late@example.com", Code: code})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	require.NoError(t, f.svc.ResendVerification(ctx, "late@example.com"))
	fresh := f.mailer.code("late@example.com")
	require.NoError(t, f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "late@example.com", Code: fresh}))
}

func TestResendVerificationUnknownEmail(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.ResendVerification(context.Background(), "ghost@example.com"))
	assert.ErrorIs(t, f.svc.ResendVerification(context.Background(), "nope"), domain.ErrInvalidEmail)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.register(t, "reset@example.com", "secret123")

	require.NoError(t, f.svc.ForgotPassword(ctx, "reset@example.com"))
	link := f.mailer.link("reset@example.com")
	require.NotEmpty(t, link)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "notes.example.com", parsed.Host)
	assert.Equal(t, "/reset-password", parsed.Path)
	raw := parsed.Query().Get("token")
	require.NotEmpty(t, raw)

	err = f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Token: raw, Password: "12"})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	require.NoError(t, f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Token: raw, Password: "newsecret"}))

	err = f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Token: raw, Password: "another1"})
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)

	_, err = f.svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefreshToken)

	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "reset@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "reset@example.com", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestPasswordResetExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "slow@example.com", "secret123")

	require.NoError(t, f.svc.ForgotPassword(ctx, "slow@example.com"))
	parsed, err := url.Parse(f.mailer.link("slow@example.com"))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	err = f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Token: parsed.Query().Get("token"), Password: "newsecret"})
	assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.mailer.link("ghost@example.com"))
}

func TestEnsureAdminAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.EnsureAdmin(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(ctx, "admin", "other-pass")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.svc.AdminLogin(ctx, domain.AdminLoginRequest{Username: "admin", Password: "other-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	resp, err := f.svc.AdminLogin(ctx, domain.AdminLoginRequest{Username: "admin", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Admin.Username)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	principal, err := f.svc.AuthenticateAdmin(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Admin.ID, principal.ID.String())
	assert.Equal(t, string(token.KindAdmin), principal.Kind)
}

func TestTokenAudiencesAreSeparate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "shopper@example.com", "secret123")
	_, err := f.svc.EnsureAdmin(ctx, "root", "root-pass")
	require.NoError(t, err)
	admin, err := f.svc.AdminLogin(ctx, domain.AdminLoginRequest{Username: "root", Password: "root-pass"})
	require.NoError(t, err)

	_, err = f.svc.AuthenticateAdmin(ctx, user.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))

	_, err = f.svc.Authenticate(ctx, admin.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.Authenticate(ctx, user.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
