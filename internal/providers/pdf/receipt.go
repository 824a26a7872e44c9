package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Store identifies the seller printed on every document.
type Store struct {
	Name  string
	Email string
	URL   string
}

// ReceiptData is a paid order flattened to display strings. Amounts are
// preformatted with their currency.
type ReceiptData struct {
	OrderID       string
	IssueDate     string
	DatePaid      string
	PaymentID     string
	PaymentMethod string

	CustomerName  string
	CustomerEmail string

	Items []ReceiptItem

	Subtotal   string
	Discount   string
	CouponCode string
	Total      string
}

type ReceiptItem struct {
	Description string
	Amount      string
}

var ErrEmptyReceipt = errors.New("receipt has no items")

type PDFProvider struct {
	store Store
}

func New(store Store) *PDFProvider {
	if store.Name == "" {
		store.Name = "notemart"
	}
	return &PDFProvider{store: store}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if len(receipt.Items) == 0 {
		return nil, ErrEmptyReceipt
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(6, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, p.store.Name, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Order: "+receipt.OrderID, props.Text{Top: 0}),
			text.New("Issued: "+receipt.IssueDate, props.Text{Top: 4}),
			text.New("Paid: "+receipt.DatePaid, props.Text{Top: 8}),
			text.New("Payment: "+paymentLine(receipt), props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(receipt.CustomerName, props.Text{Top: 5, Align: align.Right}),
			text.New(receipt.CustomerEmail, props.Text{Top: 9, Align: align.Right}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.Total+" paid on "+receipt.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(9, "Note", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range receipt.Items {
		m.AddRow(8,
			text.NewCol(9, item.Description, props.Text{Size: 9}),
			text.NewCol(3, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(3, receipt.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	if receipt.Discount != "" {
		label := "Discount"
		if receipt.CouponCode != "" {
			label += " (" + receipt.CouponCode + ")"
		}
		m.AddRow(8,
			col.New(7),
			text.NewCol(2, label, props.Text{Size: 9}),
			text.NewCol(3, "-"+receipt.Discount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, receipt.Total, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if p.store.Email != "" || p.store.URL != "" {
		m.AddRow(15,
			text.NewCol(12, "Questions? "+p.store.Email+" "+p.store.URL, props.Text{Size: 8, Top: 8}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func paymentLine(r ReceiptData) string {
	switch {
	case r.PaymentMethod != "" && r.PaymentID != "":
		return r.PaymentMethod + " (" + r.PaymentID + ")"
	case r.PaymentID != "":
		return r.PaymentID
	default:
		return r.PaymentMethod
	}
}
