package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
	"github.com/wneessen/go-mail"
)

const sendTimeout = 30 * time.Second

func NewEmailProvider(smtpHost, smtpUser, smtpPassword, smtpPort string, logger *slog.Logger) (*EmailProvider, error) {
	if smtpHost == "" || smtpPort == "" {
		return nil, fmt.Errorf("email: SMTP host and port must be provided")
	}
	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return nil, fmt.Errorf("email: invalid SMTP port: %w", err)
	}

	opts := []mail.Option{mail.WithPort(port)}
	if smtpUser != "" {
		opts = append(opts,
			mail.WithUsername(smtpUser),
			mail.WithPassword(smtpPassword),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}
	client, err := mail.NewClient(smtpHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: failed to create SMTP client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	provider := &EmailProvider{
		c:      make(chan *mail.Msg, 100),
		client: client,
		logger: logger,
	}
	provider.wg.Add(1)
	go provider.sendEmailWorker()

	return provider, nil
}

// EmailProvider queues messages and sends them from a single worker so a slow
// SMTP server never blocks an export job.
type EmailProvider struct {
	c      chan *mail.Msg
	client *mail.Client
	logger *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

func (e *EmailProvider) SendEmail(ctx context.Context, email usecase.Email) error {
	msg, err := buildMsg(email)
	if err != nil {
		return err
	}
	select {
	case e.c <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting mail and waits for the queue to drain.
func (e *EmailProvider) Close() error {
	e.once.Do(func() { close(e.c) })
	e.wg.Wait()
	return nil
}

func (e *EmailProvider) sendEmailWorker() {
	defer e.wg.Done()
	for msg := range e.c {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
			e.logger.Error("email: failed to send email", slog.Any("error", err))
		}
		cancel()
	}
}

func buildMsg(email usecase.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return nil, fmt.Errorf("email: from: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("email: to: %w", err)
	}
	if len(email.CC) > 0 {
		if err := msg.Cc(email.CC...); err != nil {
			return nil, fmt.Errorf("email: cc: %w", err)
		}
	}
	if len(email.BCC) > 0 {
		if err := msg.Bcc(email.BCC...); err != nil {
			return nil, fmt.Errorf("email: bcc: %w", err)
		}
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.Body)
	for _, file := range email.Attachments {
		if err := msg.AttachReader(
			file.Name,
			bytes.NewReader(file.Content),
			mail.WithFileContentType(mail.ContentType(file.ContentType)),
		); err != nil {
			return nil, fmt.Errorf("email: attach %s: %w", file.Name, err)
		}
	}
	return msg, nil
}
