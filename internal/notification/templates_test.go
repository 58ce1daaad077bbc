package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerificationEmail(t *testing.T) {
	tpl := NewTemplates("http://localhost:3000/", time.Hour, time.Hour)

	msg, err := tpl.Verification("ada@example.com", "Ada", "a.b.c")
	require.NoError(t, err)

	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Verify Your Email", msg.Subject)
	require.Contains(t, msg.HTML, `href="http://localhost:3000/verify-email?token=a.b.c"`)
	require.Contains(t, msg.HTML, "Ada")
	require.Contains(t, msg.HTML, "expire in 1 hour")
}

func TestVerificationEmail_EscapesName(t *testing.T) {
	tpl := NewTemplates("http://localhost:3000", time.Hour, time.Hour)

	msg, err := tpl.Verification("x@example.com", "<script>", "t")
	require.NoError(t, err)
	require.NotContains(t, msg.HTML, "<script>")
}

func TestPasswordResetEmail(t *testing.T) {
	tpl := NewTemplates("https://shop.example.com", time.Hour, 2*time.Hour)

	secret := "0123456789abcdef"
	msg, err := tpl.PasswordReset("ada@example.com", secret)
	require.NoError(t, err)

	require.Equal(t, "Password Reset Request", msg.Subject)
	require.Contains(t, msg.HTML, `href="https://shop.example.com/reset-password/0123456789abcdef"`)
	require.Contains(t, msg.HTML, "expire in 2 hours")
}

func TestLinks(t *testing.T) {
	tpl := NewTemplates("http://h", time.Hour, time.Hour)

	require.Equal(t, "http://h/verify-email?token=a%2Bb", tpl.VerificationLink("a+b"))
	require.Equal(t, "http://h/reset-password/abc", tpl.ResetLink("abc"))
}

func TestHumanize(t *testing.T) {
	require.Equal(t, "1 hour", humanize(time.Hour))
	require.Equal(t, "24 hours", humanize(24*time.Hour))
	require.Equal(t, "30 minutes", humanize(30*time.Minute))
}
