package tracing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSecrets(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/auth/login"),
		attribute.String("user.password", "hunter2"),
		attribute.String("razorpay_signature", "abc"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

type upstreamErr struct{ body string }

func (e upstreamErr) Error() string { return e.body }

func TestSafeErrorHidesMessage(t *testing.T) {
	err := fmt.Errorf("capture: %w", upstreamErr{body: "key_secret=xyz"})
	safe := SafeError(err)
	assert.NotContains(t, safe.Error(), "key_secret")
	assert.Nil(t, SafeError(nil))
	assert.True(t, errors.Is(SafeError(fmt.Errorf("x: %w", context.Canceled)), context.Canceled))
}
