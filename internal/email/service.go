package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send sendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to string, c Confirmation) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient address %q", to)
	}
	body, err := BuildOrderConfirmationBody(c)
	if err != nil {
		return fmt.Errorf("failed to render confirmation: %w", err)
	}
	subject := fmt.Sprintf("Order confirmed: %s", c.OrderID)
	return s.deliver(to, subject, body)
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}
