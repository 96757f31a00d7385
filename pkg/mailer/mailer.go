package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Config holds SMTP configuration
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	FromName  string
	TLSPolicy string // none, opportunistic or mandatory
	CodeTTL   time.Duration
}

// Mailer delivers recovery codes by email
type Mailer struct {
	config Config
	logger *zap.Logger
}

// New creates a new Mailer instance
func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{config: cfg, logger: logger}
}

// SendRecoveryCode sends the password recovery code to toEmail
func (m *Mailer) SendRecoveryCode(ctx context.Context, toEmail, code string) error {
	subject := "Reset your password"

	body, err := renderRecoveryTemplate(code, int(m.config.CodeTTL.Minutes()))
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(ctx, toEmail, subject, body, recoveryPlainText(code, int(m.config.CodeTTL.Minutes())))
}

// send delivers an email via SMTP
func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.config.FromName, m.config.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	msg.AddAlternativeString(mail.TypeTextPlain, textBody)

	client, err := mail.NewClient(m.config.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("failed to send email", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(tlsPolicy(m.config.TLSPolicy)),
		mail.WithTimeout(10 * time.Second),
	}
	if m.config.Username != "" && m.config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}
	return opts
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "mandatory":
		return mail.TLSMandatory
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}

var recoveryTemplate = template.Must(template.New("recovery").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#ffffff;border-radius:16px;overflow:hidden;border:1px solid rgba(239,68,68,0.2);">
        <!-- Header -->
        <div style="background:linear-gradient(135deg,#ef4444 0%,#dc2626 100%);padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:24px;font-weight:700;">Password Reset</h1>
        </div>

        <!-- Body -->
        <div style="padding:32px;">
            <p style="color:#334155;font-size:14px;line-height:1.6;margin:0 0 24px;">
                We received a request to reset your password. Use this one-time code:
            </p>

            <!-- OTP Code -->
            <div style="background:rgba(239,68,68,0.08);border:2px dashed rgba(239,68,68,0.4);border-radius:12px;padding:24px;text-align:center;margin:0 0 24px;">
                <span style="font-size:36px;font-weight:800;letter-spacing:8px;color:#dc2626;font-family:'Courier New',monospace;">{{.Code}}</span>
            </div>

            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0 0 8px;">
                This code expires in <strong style="color:#f59e0b;">{{.ExpiryMinutes}} minutes</strong>. Do not share it with anyone.
            </p>
            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0;">
                If you didn't request a password reset, please ignore this email and your password will remain unchanged.
            </p>
        </div>
    </div>
</body>
</html>`))

// renderRecoveryTemplate returns the HTML body for the recovery email
func renderRecoveryTemplate(code string, expiryMinutes int) (string, error) {
	var buf bytes.Buffer
	err := recoveryTemplate.Execute(&buf, map[string]interface{}{
		"Code":          code,
		"ExpiryMinutes": expiryMinutes,
	})
	return buf.String(), err
}

func recoveryPlainText(code string, expiryMinutes int) string {
	return fmt.Sprintf("Your one-time password reset code is: %s\n\n"+
		"This code is valid for %d minutes. Please do not share it with anyone.\n\n"+
		"If you did not request this reset, please ignore this email.\n", code, expiryMinutes)
}
