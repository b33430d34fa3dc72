package notify

import (
	"context"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Notifier sends one-shot desktop notifications. Delivery is fire-and-forget:
// a failed toast never fails the pipeline.
type Notifier interface {
	Success(ctx context.Context, message string)
	Failure(ctx context.Context, message string)
}

const appTitle = "lecture2obs"

type desktopNotifier struct{}

func NewDesktop() Notifier {
	return desktopNotifier{}
}

func (desktopNotifier) Success(ctx context.Context, message string) {
	if err := beeep.Notify(appTitle, message, ""); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to deliver success notification")
	}
}

func (desktopNotifier) Failure(ctx context.Context, message string) {
	if err := beeep.Alert(appTitle, message, ""); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to deliver failure notification")
	}
}
