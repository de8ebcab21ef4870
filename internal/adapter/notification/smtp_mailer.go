package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/ports"
)

// Options configures the SMTP relay. An empty Host switches the mailer
// to log-only mode for local development.
type Options struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

type smtpMailer struct {
	opts Options
	log  *logrus.Logger
}

func New(opts Options, log *logrus.Logger) ports.Mailer {
	if log == nil {
		log = logrus.New()
	}
	if opts.Host == "" {
		log.Warn("SMTP host not configured, emails will only be logged")
	}
	return &smtpMailer{opts: opts, log: log}
}

func (m *smtpMailer) SendOTP(ctx context.Context, email, nroTramite, code string) error {
	subject := fmt.Sprintf("Código de verificación - Trámite %s", nroTramite)
	body := fmt.Sprintf(
		"Su código de verificación es: %s\n\n"+
			"El código vence en 15 minutos y admite 3 intentos.\n"+
			"Número de trámite: %s\n",
		code, nroTramite)
	return m.send(ctx, email, subject, body)
}

func (m *smtpMailer) SendPaymentConfirmed(ctx context.Context, email, nroTramite string) error {
	subject := fmt.Sprintf("Pago acreditado - Trámite %s", nroTramite)
	body := fmt.Sprintf(
		"Recibimos el pago de la tasa correspondiente al trámite %s.\n\n"+
			"Le avisaremos por este medio cuando el certificado esté disponible.\n",
		nroTramite)
	return m.send(ctx, email, subject, body)
}

func (m *smtpMailer) SendCertificateReady(ctx context.Context, email, nroTramite, downloadURL string, validityDays int) error {
	subject := fmt.Sprintf("Certificado disponible - Trámite %s", nroTramite)
	body := fmt.Sprintf(
		"Su certificado ya está disponible para descarga:\n\n%s\n\n"+
			"El enlace es válido por %d días.\n",
		downloadURL, validityDays)
	return m.send(ctx, email, subject, body)
}

func (m *smtpMailer) SendRequestExpired(ctx context.Context, email, nroTramite string) error {
	subject := fmt.Sprintf("Trámite vencido - %s", nroTramite)
	body := fmt.Sprintf(
		"El trámite %s venció sin que se acreditara el pago de la tasa.\n\n"+
			"Si aún necesita el certificado deberá iniciar una nueva solicitud.\n",
		nroTramite)
	return m.send(ctx, email, subject, body)
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	if m.opts.Host == "" {
		m.log.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("email (log-only mode)")
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.opts.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	var auth smtp.Auth
	if m.opts.Username != "" {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.opts.From, []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
