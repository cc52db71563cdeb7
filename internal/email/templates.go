package email

import (
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

// Confirmation is everything the order confirmation mail shows
type Confirmation struct {
	OrderID           string
	CustomerName      string
	ShippingAddress   string
	PaymentMethod     string
	Items             []OrderItem
	Total             decimal.Decimal
	PointsEarned      int
	EstimatedDelivery time.Time
}

var confirmationTemplate = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"amount": FormatAmount,
	"lineTotal": func(i OrderItem) string {
		return FormatAmount(i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))))
	},
	"itemName": func(i OrderItem) string {
		if i.Name == "" {
			return i.ProductID
		}
		return i.Name
	},
	"date": func(t time.Time) string { return t.Format("Mon, 02 Jan 2006") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #43e97b 0%, #38f9d7 100%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Hi {{.CustomerName}}, your fresh produce is on its way from the farm.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">{{.OrderID}}</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #43e97b; padding-bottom: 10px;">Your order</h2>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Total</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Items}}
				<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">{{itemName .}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{amount .Price}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{lineTotal .}}</td>
				</tr>
			{{- end}}
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Grand total</span>
			<span style="font-size: 24px; font-weight: bold; color: #28a745; margin-left: 10px;">{{amount .Total}}</span>
		</div>

		<p>Paid by: {{.PaymentMethod}}<br>
		Delivering to: {{.ShippingAddress}}<br>
		Expected by: {{date .EstimatedDelivery}}</p>
		{{- if gt .PointsEarned 0}}
		<p>You earned <strong>{{.PointsEarned}}</strong> loyalty points with this order.</p>
		{{- end}}

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This email was sent automatically. Please contact support if you have any questions.
		</p>
	</div>
</body>
</html>`))

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(c Confirmation) (string, error) {
	var b strings.Builder
	if err := confirmationTemplate.Execute(&b, c); err != nil {
		return "", err
	}
	return b.String(), nil
}

// FormatAmount renders d as rupees with two decimals and comma separators
func FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "₹" + groupThousands(whole) + "." + frac
}

// groupThousands inserts a comma every three digits from the right
func groupThousands(str string) string {
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}

	return result.String()
}
