package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sushihentaime/showcase/internal/common"
	"golang.org/x/exp/rand"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, siteURL string, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:      mb,
		m:       NewMailer(host, port, username, password, sender, NewTemplate()),
		logger:  logger,
		siteURL: siteURL,
		ctx:     ctx,
		cancel:  cancel,
		sleep:   sleepContext,
	}
}

// SendWelcomeEmail consumes user.created events and mails every new user, retrying with exponential backoff and jitter.
func (s *MailService) SendWelcomeEmail() error {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		return err
	}

	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event userCreated
				err := json.Unmarshal(msg.Body, &event)
				if err != nil || event.Email == "" {
					s.logger.Error("could not decode user.created message", slog.String("body", string(msg.Body)))
					msg.Ack(false)
					continue
				}

				if s.deliver(event) {
					s.logger.Info("welcome email sent", slog.String("email", event.Email))
				} else {
					s.logger.Error("could not send welcome email", slog.String("email", event.Email))
				}
				msg.Ack(false)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendWelcomeEmail due to context cancellation")
				return
			}
		}
	}()

	return nil
}

func (s *MailService) deliver(event userCreated) bool {
	data := welcomeData{
		Username: event.Username,
		Level:    event.Level,
		SiteURL:  s.siteURL,
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(event.Email, data, welcomeTemplate)
		if err == nil {
			return true
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying welcome email", slog.String("email", event.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error", err.Error()))
		if !s.sleep(s.ctx, delay) {
			return false
		}
	}

	return false
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops the consumer and waits for the message in progress.
func (s *MailService) Close() {
	s.cancel()
	if s.done != nil {
		<-s.done
	}
}
