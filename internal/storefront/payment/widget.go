// internal/storefront/payment/widget.go
package payment

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/fruitbox/internal/storefront/order"
)

// FormatAmount renders paise as rupees
func FormatAmount(paise int64, currency string) string {
	amount := decimal.New(paise, -2).StringFixed(2)
	if currency == "" || currency == "INR" {
		return "₹" + amount
	}
	return amount + " " + currency
}

// TerminalWidget asks the shopper to complete the payment on the hosted page
// and paste back what it shows. One goroutine owns the reader for the life
// of the widget, so a prompt abandoned by a cancelled context leaves the
// next typed line for the next prompt.
type TerminalWidget struct {
	in  *bufio.Reader
	out io.Writer

	start sync.Once
	lines chan inputLine
}

type inputLine struct {
	s   string
	err error
}

func NewTerminalWidget(in io.Reader, out io.Writer) *TerminalWidget {
	return &TerminalWidget{in: bufio.NewReader(in), out: out, lines: make(chan inputLine)}
}

func (w *TerminalWidget) readLines() {
	defer close(w.lines)
	for {
		s, err := w.in.ReadString('\n')
		if err == nil || s != "" {
			w.lines <- inputLine{s: strings.TrimSpace(s)}
		}
		if err != nil {
			if err != io.EOF {
				w.lines <- inputLine{err: err}
			}
			return
		}
	}
}

// Open prompts for the payment id and signature. An empty payment id
// dismisses the widget; "fail: <reason>" reports a provider failure.
func (w *TerminalWidget) Open(ctx context.Context, intent *order.PaymentIntent) (*WidgetResult, error) {
	fmt.Fprintf(w.out, "\nPay %s for order %s\n", FormatAmount(intent.Amount, intent.Currency), intent.OrderNumber)
	fmt.Fprintf(w.out, "  key:      %s\n  order id: %s\n", intent.KeyID, intent.RazorpayOrderID)

	paymentID, err := w.prompt(ctx, "payment id (blank to cancel): ")
	if err != nil {
		return nil, err
	}
	if paymentID == "" {
		return nil, ErrDismissed
	}
	if reason, ok := strings.CutPrefix(paymentID, "fail:"); ok {
		return nil, &WidgetFailure{Code: "BAD_REQUEST_ERROR", Description: strings.TrimSpace(reason)}
	}

	signature, err := w.prompt(ctx, "signature: ")
	if err != nil {
		return nil, err
	}
	if signature == "" {
		return nil, ErrDismissed
	}

	return &WidgetResult{
		RazorpayOrderID: intent.RazorpayOrderID,
		PaymentID:       paymentID,
		Signature:       signature,
	}, nil
}

func (w *TerminalWidget) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(w.out, label)
	w.start.Do(func() { go w.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-w.lines:
		if !ok {
			return "", ErrDismissed
		}
		return l.s, l.err
	}
}

// TestModeWidget completes every payment at once, signing it with the
// gateway test secret the way the hosted checkout does. Development only.
type TestModeWidget struct {
	keySecret string
}

func NewTestModeWidget(keySecret string) *TestModeWidget {
	return &TestModeWidget{keySecret: keySecret}
}

func (w *TestModeWidget) Open(ctx context.Context, intent *order.PaymentIntent) (*WidgetResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paymentID := "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	mac := hmac.New(sha256.New, []byte(w.keySecret))
	mac.Write([]byte(intent.RazorpayOrderID + "|" + paymentID))

	return &WidgetResult{
		RazorpayOrderID: intent.RazorpayOrderID,
		PaymentID:       paymentID,
		Signature:       hex.EncodeToString(mac.Sum(nil)),
	}, nil
}
