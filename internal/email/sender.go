package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/config"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Sender interface {
	SendReceiptEmail(ctx context.Context, to, orderID string, pdf []byte) error
}

type smtpSender struct {
	from     string
	password string
	host     string
	port     string
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewSMTPSender(cfg config.SMTP, logger *zap.Logger) Sender {
	return &smtpSender{
		from:     cfg.User,
		password: cfg.Password,
		host:     cfg.Host,
		port:     cfg.Port,
		logger:   logger,
		tracer:   otel.Tracer("email/sender"),
	}
}

const boundary = "receipt-attachment-boundary"

// SendReceiptEmail delivers the receipt PDF as a multipart attachment.
func (s *smtpSender) SendReceiptEmail(ctx context.Context, to, orderID string, pdf []byte) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendReceiptEmail")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.String("order_id", orderID),
	)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: Your receipt for order %s\r\n", orderID)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	fmt.Fprintf(&msg, `
		<h1>Thank you for your order!</h1>
		<p>Your payment for order <b>%s</b> has been received. The receipt is attached.</p>
	`, orderID)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: application/pdf\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=\"receipt-%s.pdf\"\r\n\r\n", orderID)

	encoded := base64.StdEncoding.EncodeToString(pdf)
	for len(encoded) > 76 {
		msg.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	msg.WriteString(encoded + "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	ctxlog.Info(ctx, s.logger, "Sending receipt email",
		zap.String("to", to),
		zap.String("order_id", orderID),
	)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg.Bytes()); err != nil {
		span.RecordError(err)
		ctxlog.Error(ctx, s.logger, "Error sending receipt email",
			zap.String("to", to),
			zap.String("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to send mail: %v", err)
	}

	ctxlog.Info(ctx, s.logger, "Receipt email sent successfully",
		zap.String("order_id", orderID),
	)

	return nil
}
