package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/example/farm2home/internal/domain/order"
	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

// ValidationError lists the form fields that failed their checks.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ShippingInfo is the first wizard page. Only contact and street address
// gate the next step.
type ShippingInfo struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (s ShippingInfo) normalize() ShippingInfo {
	return ShippingInfo{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Phone:   strings.TrimSpace(s.Phone),
		Address: strings.TrimSpace(s.Address),
		City:    strings.TrimSpace(s.City),
		State:   strings.TrimSpace(s.State),
		Pincode: strings.TrimSpace(s.Pincode),
	}
}

func (s ShippingInfo) customer() order.Customer {
	return order.Customer{
		Name:    s.Name,
		Email:   s.Email,
		Phone:   s.Phone,
		Address: s.Address,
		City:    s.City,
		State:   s.State,
		Pincode: s.Pincode,
	}
}

// PaymentInfo is captured as typed. None of it is checked or charged.
type PaymentInfo struct {
	Method     order.PaymentMethod `json:"method"`
	CardNumber string              `json:"card_number"`
	CardName   string              `json:"card_name"`
	CardExpiry string              `json:"card_expiry"`
	CardCVV    string              `json:"card_cvv"`
	UPIID      string              `json:"upi_id"`
}

// record keeps what is shown on the order; the CVV and expiry are dropped.
func (p PaymentInfo) record() order.Payment {
	out := order.Payment{Method: p.Method}
	switch p.Method {
	case order.PaymentCard:
		out.CardHolder = strings.TrimSpace(p.CardName)
		out.CardLast4 = lastDigits(p.CardNumber, 4)
	case order.PaymentUPI:
		out.UPIID = strings.TrimSpace(p.UPIID)
	}
	return out
}

func lastDigits(s string, n int) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) <= n {
		return string(digits)
	}
	return string(digits[len(digits)-n:])
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateShipping(info ShippingInfo) error {
	err := validate.Struct(info)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}
