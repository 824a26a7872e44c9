package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/notemart/pkg/db"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		actor  string
		object string
		action string
		want   error
	}{
		{"admin refunds", "admin:1001", ObjectPayment, ActionRefund, nil},
		{"admin dashboard", "admin:1001", ObjectDashboard, ActionView, nil},
		{"user creates order", "user:2002", ObjectOrder, ActionCreate, nil},
		{"user cannot refund", "user:2002", ObjectPayment, ActionRefund, ErrForbidden},
		{"user cannot view dashboard", "user:2002", ObjectDashboard, ActionView, ErrForbidden},
		{"system updates orders", "system", ObjectOrder, ActionUpdate, nil},
		{"unknown kind", "robot:1", ObjectOrder, ActionView, ErrInvalidActor},
		{"bad id", "user:abc", ObjectOrder, ActionView, ErrInvalidActor},
		{"empty action", "admin:1001", ObjectOrder, " ", ErrInvalidAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.actor, tc.object, tc.action)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEnforcerSeedIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	_, err = NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range policies {
		key := p[0] + "|" + p[1] + "|" + p[2]
		assert.False(t, seen[key], "duplicate policy %s", key)
		seen[key] = true
	}
}
