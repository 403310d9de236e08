package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/npezzotti/roomcast/internal/types"
	"github.com/rs/zerolog"
)

// Notifier delivers a notification to a user's personal channel.
type Notifier interface {
	Notify(userId string, n types.Notification) (int, error)
}

// Envelope is the payload published on the notification subject.
type Envelope struct {
	UserId       string             `json:"userId"`
	Notification types.Notification `json:"notification"`
}

// Connect dials NATS and keeps reconnecting for as long as the process runs.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("roomcast"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// Subscriber feeds notifications published by other services into the hub.
type Subscriber struct {
	log     zerolog.Logger
	nc      *nats.Conn
	subject string
	target  Notifier
	sub     *nats.Subscription
}

func NewSubscriber(logger zerolog.Logger, nc *nats.Conn, subject string, target Notifier) *Subscriber {
	return &Subscriber{
		log:     logger.With().Str("subject", subject).Logger(),
		nc:      nc,
		subject: subject,
		target:  target,
	}
}

func (s *Subscriber) Start() error {
	if s.sub != nil {
		return errors.New("subscriber already started")
	}

	sub, err := s.nc.Subscribe(s.subject, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe to %q: %w", s.subject, err)
	}
	s.sub = sub

	s.log.Info().Msg("listening for notifications")
	return nil
}

// Stop drains the subscription so in flight messages are still delivered.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

func (s *Subscriber) handle(msg *nats.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed notification")
		return
	}

	delivered, err := s.target.Notify(env.UserId, env.Notification)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", env.UserId).Msg("dropping invalid notification")
		return
	}

	s.log.Debug().
		Str("user_id", env.UserId).
		Str("notification_id", env.Notification.Id).
		Int("delivered", delivered).
		Msg("notification received")
}
