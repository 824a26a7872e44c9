package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(c clock.Clock) *Service {
	return NewWithSecrets([]byte("user-secret"), []byte("admin-secret"), time.Hour, 30*time.Minute, c)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(nil)

	raw, expiresAt, err := svc.Issue(KindUser, "42")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Verify(KindUser, raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "user", claims.Typ)
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	svc := newTestService(nil)

	userToken, _, err := svc.Issue(KindUser, "1")
	require.NoError(t, err)
	adminToken, _, err := svc.Issue(KindAdmin, "1")
	require.NoError(t, err)

	_, err = svc.Verify(KindAdmin, userToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Verify(KindUser, adminToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Same secret for both kinds still fails on typ and audience.
	shared := NewWithSecrets([]byte("same"), []byte("same"), time.Hour, time.Hour, nil)
	userToken, _, err = shared.Issue(KindUser, "1")
	require.NoError(t, err)
	_, err = shared.Verify(KindAdmin, userToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(fake)

	raw, _, err := svc.Issue(KindAdmin, "7")
	require.NoError(t, err)

	fake.Advance(31 * time.Minute)
	_, err = svc.Verify(KindAdmin, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService(nil)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := svc.Verify(KindUser, raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestDownloadLinkIsPinnedToOrderAndNote(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	fake := clock.NewFakeClock(now)
	svc := newTestService(fake)

	raw, expiresAt, err := svc.IssueDownload(snowflake.ID(9), "ORD-01ABC", snowflake.ID(42))
	require.NoError(t, err)
	assert.Equal(t, now.Add(defaultDownloadTTL), expiresAt)

	user, err := svc.VerifyDownload(raw, "ORD-01ABC", "42")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(9), user)

	_, err = svc.VerifyDownload(raw, "ORD-01ABC", "43")
	assert.ErrorIs(t, err, ErrLinkMismatch)
	_, err = svc.VerifyDownload(raw, "ORD-OTHER", "42")
	assert.ErrorIs(t, err, ErrLinkMismatch)

	// A download link is not an access token and the reverse.
	_, err = svc.Verify(KindUser, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
	access, _, err := svc.Issue(KindUser, "9")
	require.NoError(t, err)
	_, err = svc.VerifyDownload(access, "ORD-01ABC", "42")
	assert.ErrorIs(t, err, ErrInvalidToken)

	fake.Advance(defaultDownloadTTL + time.Second)
	_, err = svc.VerifyDownload(raw, "ORD-01ABC", "42")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
