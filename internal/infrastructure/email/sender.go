package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"

	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/config"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/utils"
	"github.com/jordan-wright/email"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrEmptyRecipient = errors.New("email recipient is empty")

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliverFunc hands a built message to the transport.
type DeliverFunc func(e *email.Email) error

type smtpSender struct {
	from    string
	deliver DeliverFunc
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewSMTPSender(cfg config.Mail, logger *zap.Logger) Sender {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return NewSender(cfg.From, func(e *email.Email) error {
		return e.Send(addr, auth)
	}, logger)
}

func NewSender(from string, deliver DeliverFunc, logger *zap.Logger) Sender {
	return &smtpSender{
		from:    from,
		deliver: deliver,
		cb:      utils.NewBreaker("smtp", logger),
		logger:  logger,
		tracer:  otel.Tracer("infrastructure/email"),
	}
}

// Send makes exactly one delivery attempt. It returns early with ctx.Err()
// when ctx ends first; the SMTP exchange already in flight is not aborted and
// may still deliver, so a timed out send is reported as failed even if the
// mail arrives.
func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	ctx, span := s.tracer.Start(ctx, "smtp.Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", msg.To),
		attribute.String("subject", msg.Subject),
	)

	if msg.To == "" {
		return ErrEmptyRecipient
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)

	done := make(chan error, 1)
	go func() {
		_, err := utils.ExecuteWithBreaker(s.cb, func() (struct{}, error) {
			return struct{}{}, s.deliver(e)
		})
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Error sending email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)

		return fmt.Errorf("failed to send mail: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Sent email successfully",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)

	return nil
}
