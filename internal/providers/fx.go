package providers

import (
	"github.com/smallbiznis/notemart/internal/providers/email"
	"github.com/smallbiznis/notemart/internal/providers/pdf"
	"github.com/smallbiznis/notemart/internal/providers/razorpay"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	razorpay.Module,
)
