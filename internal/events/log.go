package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes events to a logrus logger.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) {
	entry := p.logger.WithFields(logrus.Fields{
		"event":    ev.Kind,
		"username": ev.Username,
	})
	if ev.UserID != "" {
		entry = entry.WithField("user_id", ev.UserID)
	}
	if len(ev.Fields) > 0 {
		entry = entry.WithField("fields", ev.Fields)
	}

	if ev.Kind == AccountLoginFailed {
		entry.Warn("account event")
		return
	}
	entry.Info("account event")
}
