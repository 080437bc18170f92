package ingress

import (
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// SMTPIngress triggers the pipeline from inbound mail. The recipient's
// local part selects the merchant, so a message addressed to
// acme@replies.example.com runs under merchant "acme".
type SMTPIngress struct {
	service    Processor
	logger     *zap.Logger
	listenAddr string
	domain     string
	server     *smtp.Server
}

// NewSMTPIngress creates a new SMTP ingress
func NewSMTPIngress(service Processor, logger *zap.Logger, listenAddr, domain string) *SMTPIngress {
	return &SMTPIngress{
		service:    service,
		logger:     logger,
		listenAddr: listenAddr,
		domain:     domain,
	}
}

// Start begins accepting inbound mail
func (s *SMTPIngress) Start() error {
	s.server = smtp.NewServer(&smtpBackend{ingress: s})
	s.server.Addr = s.listenAddr
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 10 * 1024 * 1024 // 10MB
	s.server.MaxRecipients = 10
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP ingress starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop shuts the server down
func (s *SMTPIngress) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

// smtpBackend creates SMTP sessions
type smtpBackend struct {
	ingress *SMTPIngress
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{ingress: b.ingress}, nil
}

// smtpSession handles one SMTP transaction
type smtpSession struct {
	ingress *SMTPIngress
	from    string
	rcpt    string
}

func (s *smtpSession) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string, opts *smtp.RcptOptions) error {
	s.rcpt = to
	return nil
}

// Data receives the message, maps it to an inbound message, and runs
// the pipeline. The message is accepted either way; a failed run is
// logged and leaves no review record.
func (s *smtpSession) Data(r io.Reader) error {
	merchantID := merchantFromAddress(s.rcpt)
	if merchantID == "" {
		s.ingress.logger.Warn("Rejecting mail without a merchant recipient", zap.String("rcpt", s.rcpt))
		return &smtp.SMTPError{Code: 550, Message: "unknown recipient"}
	}

	emailID, body, err := parseMessage(r)
	if err != nil {
		s.ingress.logger.Warn("Failed to parse inbound message", zap.Error(err))
		return &smtp.SMTPError{Code: 554, Message: "malformed message"}
	}

	result, err := s.ingress.service.Process(context.Background(), &core.InboundMessage{
		MerchantID: merchantID,
		EmailID:    emailID,
		Body:       body,
	})
	if err != nil {
		s.ingress.logger.Error("Pipeline run failed",
			zap.String("merchant_id", merchantID),
			zap.String("email_id", emailID),
			zap.Error(err))
		return nil
	}

	s.ingress.logger.Info("Draft reply queued for review",
		zap.String("merchant_id", merchantID),
		zap.String("email_id", emailID),
		zap.Bool("web_search_used", result.SearchUsed))
	return nil
}

func (s *smtpSession) Reset() {
	s.from = ""
	s.rcpt = ""
}

func (s *smtpSession) Logout() error {
	return nil
}

// merchantFromAddress extracts the merchant ID from a recipient address
func merchantFromAddress(addr string) string {
	local, _, found := strings.Cut(addr, "@")
	if !found {
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(local)
}

// parseMessage extracts a stable email ID and the plain body from a raw
// message. A missing Message-Id falls back to a random UUID.
func parseMessage(r io.Reader) (emailID, body string, err error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return "", "", err
	}

	emailID = strings.Trim(msg.Header.Get("Message-Id"), "<>")
	if emailID == "" {
		emailID = uuid.NewString()
	}

	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", "", err
	}
	return emailID, string(raw), nil
}
