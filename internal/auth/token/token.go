package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Kind string

const (
	KindUser     Kind = "user"
	KindAdmin    Kind = "admin"
	KindDownload Kind = "download"

	issuer = "notemart"

	defaultDownloadTTL = time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	// ErrLinkMismatch means a valid download token was presented for another
	// order or note.
	ErrLinkMismatch = errors.New("link_mismatch")
)

// Claims are the JWT claims of an access token. Typ and the audience both
// carry the token kind. Download tokens also pin one order and note.
type Claims struct {
	Typ     string `json:"typ"`
	OrderID string `json:"order_id,omitempty"`
	NoteID  string `json:"note_id,omitempty"`
	jwt.RegisteredClaims
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

// Service signs and verifies HS256 access tokens. User and admin tokens
// use separate secrets.
type Service struct {
	secrets map[Kind][]byte
	ttl     map[Kind]time.Duration
	clock   clock.Clock
}

func New(p Params) (*Service, error) {
	log := p.Log.Named("auth.token")
	userSecret, err := secretOrRandom(p.Cfg.AuthJWTSecret, "AUTH_JWT_SECRET", log)
	if err != nil {
		return nil, err
	}
	adminSecret, err := secretOrRandom(p.Cfg.AdminJWTSecret, "ADMIN_JWT_SECRET", log)
	if err != nil {
		return nil, err
	}
	svc := NewWithSecrets(userSecret, adminSecret, p.Cfg.AccessTokenTTL, p.Cfg.AdminTokenTTL, p.Clock)
	if p.Cfg.DownloadLinkTTL > 0 {
		svc.ttl[KindDownload] = p.Cfg.DownloadLinkTTL
	}
	return svc, nil
}

func NewWithSecrets(userSecret, adminSecret []byte, userTTL, adminTTL time.Duration, c clock.Clock) *Service {
	if userTTL <= 0 {
		userTTL = 24 * time.Hour
	}
	if adminTTL <= 0 {
		adminTTL = 24 * time.Hour
	}
	return &Service{
		secrets: map[Kind][]byte{KindUser: userSecret, KindAdmin: adminSecret, KindDownload: userSecret},
		ttl:     map[Kind]time.Duration{KindUser: userTTL, KindAdmin: adminTTL, KindDownload: defaultDownloadTTL},
		clock:   clock.Or(c),
	}
}

func (s *Service) TTL(kind Kind) time.Duration {
	return s.ttl[kind]
}

// Issue returns a signed token for subject and its expiry.
func (s *Service) Issue(kind Kind, subject string) (string, time.Time, error) {
	return s.issue(kind, subject, Claims{})
}

// IssueDownload signs a short lived link token that lets userID fetch one
// note of one order without an Authorization header.
func (s *Service) IssueDownload(userID snowflake.ID, orderID string, noteID snowflake.ID) (string, time.Time, error) {
	return s.issue(KindDownload, userID.String(), Claims{OrderID: orderID, NoteID: noteID.String()})
}

// VerifyDownload checks a link token and that it was issued for orderID and
// noteID. It returns the user the link was issued to.
func (s *Service) VerifyDownload(raw, orderID, noteID string) (snowflake.ID, error) {
	claims, err := s.Verify(KindDownload, raw)
	if err != nil {
		return 0, err
	}
	if claims.OrderID == "" || claims.OrderID != strings.TrimSpace(orderID) || claims.NoteID != strings.TrimSpace(noteID) {
		return 0, ErrLinkMismatch
	}
	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

func (s *Service) issue(kind Kind, subject string, claims Claims) (string, time.Time, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl[kind])
	claims = Claims{
		Typ:     string(kind),
		OrderID: claims.OrderID,
		NoteID:  claims.NoteID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience(kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses raw as a token of the given kind.
func (s *Service) Verify(kind Kind, raw string) (*Claims, error) {
	secret, ok := s.secrets[kind]
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience(kind)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Typ != string(kind) || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func audience(kind Kind) string {
	return issuer + ":" + string(kind)
}

func secretOrRandom(secret, name string, log *zap.Logger) ([]byte, error) {
	if secret = strings.TrimSpace(secret); secret != "" {
		return []byte(secret), nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	log.Warn("signing secret not set, using an ephemeral one", zap.String("env", name))
	return []byte(hex.EncodeToString(buf)), nil
}
