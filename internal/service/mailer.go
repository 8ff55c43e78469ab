package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"lcnetwork/internal/config"
	"lcnetwork/internal/middleware"
	"lcnetwork/internal/observability"

	"github.com/wneessen/go-mail"
)

// Mailer delivers account e-mail.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
}

var otpTemplate = template.Must(template.New("otp").Parse(`<html>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f6f8f8;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 10px;">
<h2 style="color: #111817;">Hello {{.Name}}!</h2>
<p>Thanks for signing up to <strong>LC Network</strong>. Enter this code to finish registering:</p>
<div style="background-color: #f0f4f4; padding: 20px; text-align: center; border-radius: 8px; margin: 30px 0;">
<h1 style="color: #13ecda; font-size: 42px; letter-spacing: 8px; margin: 0;">{{.Code}}</h1>
</div>
<p>The code expires in <strong>{{.Minutes}} minutes</strong>. If you did not sign up, ignore this message.</p>
</div>
</body>
</html>`))

func renderOTP(name, code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Name    string
		Code    string
		Minutes int
	}{name, code, int(ttl.Minutes())})
	return buf.String(), err
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	tls      bool
}

// NewMailer returns an SMTPMailer when MAIL_HOST is set and a LogMailer otherwise.
func NewMailer(cfg *config.Config) Mailer {
	if cfg == nil || cfg.MailHost == "" {
		return LogMailer{}
	}
	return &SMTPMailer{
		host:     cfg.MailHost,
		port:     cfg.MailPort,
		username: cfg.MailUsername,
		password: cfg.MailPassword,
		from:     cfg.MailFrom,
		tls:      cfg.MailTLS,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	body, err := renderOTP(name, code, ttl)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject("Your LC Network verification code")
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{mail.WithPort(m.port)}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	if m.tls {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		observability.MailFailures.Inc()
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

// LogMailer writes the code to the log. Used in development and tests.
type LogMailer struct{}

func (LogMailer) SendOTP(ctx context.Context, to, _ string, code string, ttl time.Duration) error {
	middleware.Logger.InfoContext(ctx, "otp issued",
		slog.String("to", to),
		slog.String("code", code),
		slog.Duration("ttl", ttl),
	)
	return nil
}
