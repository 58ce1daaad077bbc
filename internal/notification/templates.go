package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/infrastructure/email"
)

const (
	subjectVerification  = "Verify Your Email"
	subjectPasswordReset = "Password Reset Request"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(
		`<p>Thank you for registering{{if .Name}}, {{.Name}}{{end}}!</p>
<p>Click <a href="{{.Link}}">here</a> to verify your email. This link will expire in {{.TTL}}.</p>`))

	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>You requested a password reset.</p>
<p>Click <a href="{{.Link}}">here</a> to reset your password. This link will expire in {{.TTL}}.</p>`))
)

type templateData struct {
	Name string
	Link string
	TTL  string
}

// Templates renders account emails with links into the frontend.
type Templates struct {
	baseURL         string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

func NewTemplates(baseURL string, verificationTTL, resetTTL time.Duration) *Templates {
	return &Templates{
		baseURL:         strings.TrimRight(baseURL, "/"),
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

func (t *Templates) VerificationLink(token string) string {
	return t.baseURL + "/verify-email?token=" + url.QueryEscape(token)
}

func (t *Templates) ResetLink(secret string) string {
	return t.baseURL + "/reset-password/" + url.PathEscape(secret)
}

func (t *Templates) Verification(to, name, token string) (email.Message, error) {
	body, err := render(verificationTmpl, templateData{
		Name: name,
		Link: t.VerificationLink(token),
		TTL:  humanize(t.verificationTTL),
	})
	if err != nil {
		return email.Message{}, err
	}

	return email.Message{To: to, Subject: subjectVerification, HTML: body}, nil
}

func (t *Templates) PasswordReset(to, secret string) (email.Message, error) {
	body, err := render(resetTmpl, templateData{
		Link: t.ResetLink(secret),
		TTL:  humanize(t.resetTTL),
	})
	if err != nil {
		return email.Message{}, err
	}

	return email.Message{To: to, Subject: subjectPasswordReset, HTML: body}, nil
}

func render(tmpl *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering %s email: %w", tmpl.Name(), err)
	}

	return buf.String(), nil
}

func humanize(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
