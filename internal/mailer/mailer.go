package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogSender logs emails instead of delivering them. Used when email delivery
// is disabled (development, tests).
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender by logging the message headers.
func (s *LogSender) Send(ctx context.Context, to, subject, _ string) error {
	s.Logger.InfoContext(ctx, "email delivery disabled, skipping send",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

const (
	queueSize   = 64
	sendTimeout = 30 * time.Second
)

type message struct {
	to      string
	subject string
	body    string
}

// Mailer dispatches emails asynchronously so a slow mail provider never
// blocks login, signup, or reset-request latency. Delivery is best-effort:
// failures are logged, never surfaced to the caller.
type Mailer struct {
	sender          Sender
	logger          *slog.Logger
	frontendBaseURL string

	queue chan message
	wg    sync.WaitGroup
}

// New creates a mailer and starts its dispatch goroutine.
func New(sender Sender, frontendBaseURL string, logger *slog.Logger) *Mailer {
	m := &Mailer{
		sender:          sender,
		logger:          logger,
		frontendBaseURL: frontendBaseURL,
		queue:           make(chan message, queueSize),
	}

	m.wg.Add(1)
	go m.dispatch()

	return m
}

func (m *Mailer) dispatch() {
	defer m.wg.Done()

	for msg := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := m.sender.Send(ctx, msg.to, msg.subject, msg.body); err != nil {
			m.logger.Error("failed to send email",
				slog.String("to", msg.to),
				slog.String("subject", msg.subject),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// Close stops accepting new messages and waits for queued sends to finish.
func (m *Mailer) Close() {
	close(m.queue)
	m.wg.Wait()
}

// enqueue hands a message to the dispatcher without blocking the caller. If
// the queue is full the message is dropped and logged.
func (m *Mailer) enqueue(to, subject, body string) {
	select {
	case m.queue <- message{to: to, subject: subject, body: body}:
	default:
		m.logger.Warn("email queue full, dropping message",
			slog.String("to", to),
			slog.String("subject", subject),
		)
	}
}

// SendPasswordReset emails a reset link built from the frontend base URL. The
// token never appears in any API response.
func (m *Mailer) SendPasswordReset(to, firstName, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.frontendBaseURL, token)
	body := fmt.Sprintf(`
		<h2>Recuperá tu contraseña</h2>
		<p>Hola %s,</p>
		<p>Recibimos un pedido para restablecer tu contraseña. El enlace vence en 24 horas.</p>
		<p><a href="%s">Restablecer contraseña</a></p>
		<p>Si no fuiste vos, podés ignorar este correo.</p>`,
		firstName, link,
	)
	m.enqueue(to, "DeViaje - Recuperación de contraseña", body)
}

// SendWelcome emails a greeting after self-registration.
func (m *Mailer) SendWelcome(to, firstName string) {
	body := fmt.Sprintf(`
		<h2>¡Bienvenido a DeViaje!</h2>
		<p>Hola %s,</p>
		<p>Tu cuenta fue creada con éxito. Ya podés iniciar sesión y planear tu próximo viaje.</p>`,
		firstName,
	)
	m.enqueue(to, "DeViaje - Bienvenido", body)
}

// SendTemporaryPassword emails an admin-issued temporary password that must
// be changed on first use.
func (m *Mailer) SendTemporaryPassword(to, firstName, username, tempPassword string) {
	body := fmt.Sprintf(`
		<h2>Tu cuenta en DeViaje</h2>
		<p>Hola %s,</p>
		<p>Se creó una cuenta para vos. Ingresá con estas credenciales y cambiá la contraseña al iniciar sesión.</p>
		<p>Usuario: <strong>%s</strong><br>Contraseña temporal: <strong>%s</strong></p>`,
		firstName, username, tempPassword,
	)
	m.enqueue(to, "DeViaje - Credenciales de acceso", body)
}

// SendPasswordChanged emails a confirmation after a successful password
// change or reset.
func (m *Mailer) SendPasswordChanged(to, firstName string) {
	body := fmt.Sprintf(`
		<h2>Contraseña actualizada</h2>
		<p>Hola %s,</p>
		<p>Tu contraseña fue cambiada correctamente. Si no fuiste vos, contactanos de inmediato.</p>`,
		firstName,
	)
	m.enqueue(to, "DeViaje - Contraseña actualizada", body)
}
