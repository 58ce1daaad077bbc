package email

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSend_BuildsMessage(t *testing.T) {
	var got *email.Email
	s := NewSender("shop@example.com", func(e *email.Email) error {
		got = e
		return nil
	}, zap.NewNop())

	err := s.Send(context.Background(), Message{
		To:      "ada@example.com",
		Subject: "Verify your email",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	require.Equal(t, "shop@example.com", got.From)
	require.Equal(t, []string{"ada@example.com"}, got.To)
	require.Equal(t, "Verify your email", got.Subject)
	require.Equal(t, "<p>hi</p>", string(got.HTML))
}

func TestSend_SingleAttemptOnFailure(t *testing.T) {
	var calls atomic.Int32
	s := NewSender("shop@example.com", func(*email.Email) error {
		calls.Add(1)
		return errors.New("connection refused")
	}, zap.NewNop())

	err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "s"})
	require.ErrorContains(t, err, "connection refused")
	require.Equal(t, int32(1), calls.Load())
}

func TestSend_EmptyRecipient(t *testing.T) {
	s := NewSender("f", func(*email.Email) error { return nil }, zap.NewNop())

	require.ErrorIs(t, s.Send(context.Background(), Message{}), ErrEmptyRecipient)
}

func TestSend_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := NewSender("f", func(*email.Email) error {
		<-release
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, Message{To: "a@example.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSend_TimedOutDeliveryStillCompletes(t *testing.T) {
	release := make(chan struct{})
	delivered := make(chan struct{})

	s := NewSender("f", func(*email.Email) error {
		<-release
		close(delivered)
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, s.Send(ctx, Message{To: "a@example.com"}), context.DeadlineExceeded)

	close(release)

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("in-flight delivery was abandoned")
	}
}

func TestSend_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	s := NewSender("f", func(*email.Email) error {
		calls.Add(1)
		return errors.New("smtp down")
	}, zap.NewNop())

	for range 5 {
		_ = s.Send(context.Background(), Message{To: "a@example.com"})
	}

	err := s.Send(context.Background(), Message{To: "a@example.com"})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(5), calls.Load())
}
