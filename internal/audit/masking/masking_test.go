package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessorID(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"pay_ABCDEFGH1234":   "pay_****1234",
		"order_NX81ks02Pq9Z": "order_****Pq9Z",
		"rfnd_xyz":           "rfnd_****",
		"txn_ABCDEFGH1234":   "****1234",
		"abc":                "****",
	}
	for in, want := range cases {
		assert.Equal(t, want, ProcessorID(in), in)
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "r****@example.com", Email("ravi@example.com"))
	assert.Equal(t, "****", Email("not-an-email"))
	assert.Equal(t, "", Email("  "))
}

func TestFieldMasksByKey(t *testing.T) {
	assert.Equal(t, "rfnd_****5678", Field("refund_id", "rfnd_12345678"))
	assert.Equal(t, "pay_****9999", Field("razorpay_payment_id", "pay_00009999"))
	assert.Equal(t, "c****@example.com", Field("customer_email", "chitra@example.com"))
	assert.Equal(t, "****", Field("signature", "abcdef"))
	assert.Equal(t, "****", Field("reset_token", "abcdef"))
	assert.Equal(t, "requested by customer", Field("reason", "requested by customer"))
}
