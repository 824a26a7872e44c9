// Package masking redacts payment identifiers and contact details before
// they are written to audit metadata.
package masking

import "strings"

const (
	hidden     = "****"
	keepDigits = 4
)

// processorPrefixes are the identifier prefixes issued by the payment
// processor. They stay readable so an auditor can tell a refund from a
// payment.
var processorPrefixes = []string{"pay_", "rfnd_", "order_"}

// Field masks a metadata value according to its key. Unknown keys pass
// through untouched.
func Field(key, value string) string {
	switch {
	case key == "signature" || strings.HasSuffix(key, "_token"):
		if strings.TrimSpace(value) == "" {
			return ""
		}
		return hidden
	case key == "email" || strings.HasSuffix(key, "_email"):
		return Email(value)
	case key == "payment_id" || key == "refund_id" || strings.HasPrefix(key, "razorpay_"):
		return ProcessorID(value)
	}
	return value
}

// ProcessorID hides all but the last four characters of a processor
// identifier, keeping a known prefix such as pay_ intact.
func ProcessorID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	prefix := ""
	for _, p := range processorPrefixes {
		if strings.HasPrefix(value, p) {
			prefix = p
			break
		}
	}
	body := value[len(prefix):]
	if len(body) <= keepDigits {
		return prefix + hidden
	}
	return prefix + hidden + body[len(body)-keepDigits:]
}

// Email keeps the first letter of the local part and the domain.
func Email(value string) string {
	value = strings.TrimSpace(value)
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		if value == "" {
			return ""
		}
		return hidden
	}
	return value[:1] + hidden + value[at:]
}
