package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/nfcstore/checkout/internal/checkout/domain"
)

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(`
<h2>Thanks for your order!</h2>
<p>Your order <strong>{{.ID}}</strong> has been paid and is now being processed.</p>
<table>
  <tr><td>Subtotal</td><td>{{.Subtotal}}</td></tr>
  {{if not .DiscountAmount.IsZero}}<tr><td>Discount</td><td>-{{.DiscountAmount}}</td></tr>{{end}}
  <tr><td><strong>Total</strong></td><td><strong>{{.TotalAmount}}</strong></td></tr>
</table>
<p>Payment status: {{.PaymentStatus}}<br>Order status: {{.OrderStatus}}</p>
`))

var lowStockTmpl = template.Must(template.New("low_stock").Parse(`
<h2>Low stock alert</h2>
<p>Product <strong>{{.Name}}</strong> ({{.ID}}) is down to <strong>{{.Stock}}</strong> units.</p>
<p>Restock threshold: {{.LowStockThreshold}}</p>
`))

// SMTP sends transactional mail through a plain SMTP relay.
type SMTP struct {
	addr     string
	auth     smtp.Auth
	from     string
	adminTo  string
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP builds an SMTP mailer. Auth is enabled only when a username is
// configured, so local relays without auth keep working.
func NewSMTP(host string, port int, username, password, from, adminTo string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTP{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     auth,
		from:     from,
		adminTo:  adminTo,
		sendMail: smtp.SendMail,
	}
}

func (m *SMTP) SendOrderConfirmation(_ context.Context, email string, order domain.Order) error {
	var body bytes.Buffer
	if err := orderConfirmationTmpl.Execute(&body, order); err != nil {
		return fmt.Errorf("render order confirmation: %w", err)
	}

	subject := fmt.Sprintf("Order %s confirmed", order.ID)
	msg := buildMessage(m.from, email, subject, body.Bytes())

	if err := m.sendMail(m.addr, m.auth, m.from, []string{email}, msg); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	return nil
}

func (m *SMTP) SendLowStockAlert(_ context.Context, product domain.Product) error {
	var body bytes.Buffer
	if err := lowStockTmpl.Execute(&body, product); err != nil {
		return fmt.Errorf("render low stock alert: %w", err)
	}

	subject := fmt.Sprintf("Low stock: %s", product.Name)
	msg := buildMessage(m.from, m.adminTo, subject, body.Bytes())

	if err := m.sendMail(m.addr, m.auth, m.from, []string{m.adminTo}, msg); err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject string, body []byte) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body)
	return msg.Bytes()
}
