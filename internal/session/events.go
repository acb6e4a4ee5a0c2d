package session

import (
	"context"
	"time"

	"campusbook/pkg/kafka"
	"campusbook/pkg/logger"
)

const (
	EventLoggedOut = "session.logged_out"

	eventSchemaVersion = "1"
	eventSource        = "campus-agent"
)

type LoggedOutEvent struct {
	Cause      string    `json:"cause,omitempty"`
	RedirectTo string    `json:"redirectTo"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PublishingHook announces every logout on events, then hands over to next.
// A publish failure is logged and never blocks the reset.
func PublishingHook(events kafka.Publisher, log *logger.Logger, next LogoutHook) LogoutHook {
	return LogoutHookFunc(func(ctx context.Context, redirectTo string, cause error) {
		ev := LoggedOutEvent{RedirectTo: redirectTo, OccurredAt: time.Now().UTC()}
		if cause != nil {
			ev.Cause = cause.Error()
		}

		msg, err := kafka.NewMessage().
			WithValue(ev).
			WithEventType(EventLoggedOut).
			WithSchemaVersion(eventSchemaVersion).
			WithSource(eventSource).
			BuildE()
		if err != nil {
			log.Error("Failed to build logout event", "error", err)
		} else if err := events.Publish(context.WithoutCancel(ctx), msg); err != nil {
			log.Warn("Failed to publish logout event", "error", err)
		}

		if next != nil {
			next.OnLogout(ctx, redirectTo, cause)
		}
	})
}
