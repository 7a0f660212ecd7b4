// Package pipeline implements the per-user event-driven update loop: for
// every fronter-list change delivered on that user's LatestValueChannel,
// every enabled destination updater is asked to push the new status.
// Grounded in change_processor.rs's run_listener_for_changes (the
// event-driven listener), not work_loop.rs's polling variant — the
// standing decision recorded in DESIGN.md.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sp2any/src/communication"
	"sp2any/src/config"
	"sp2any/src/plurality"
	"sp2any/src/secretstore"
	"sp2any/src/updaters"
	"sp2any/src/utils"
)

// NotifyFunc reports a user's current per-platform status map back to
// whatever owns the pipeline (FleetManager).
type NotifyFunc func(statuses updaters.Statuses)

// UserPipeline owns one user's set of server-managed destination updaters
// and drives them from a LatestValueChannel of resolved fronter lists.
type UserPipeline struct {
	Config   config.ForUpdater
	Updaters map[updaters.Platform]updaters.Updater
	Notify   NotifyFunc

	receiver *communication.Receiver[[]plurality.Fronter]
}

// New constructs the enabled-or-not updater set for cfg (every
// server-managed platform gets an instance regardless of its enable flag,
// matching the source's "create all, then check enabled per call"
// structure so toggling a flag takes effect without a pipeline restart...
// except EnableVRChat, which gates the initial authentication in Setup and
// therefore does require a restart, same as the source).
func New(cfg config.ForUpdater, store *secretstore.Store, receiver *communication.Receiver[[]plurality.Fronter], notify NotifyFunc) *UserPipeline {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	vrchatUpdater := updaters.NewVRChatUpdater(store)
	discordUpdater := updaters.NewDiscordStatusUpdater()
	discordUpdater.HTTP = httpClient
	pluralKitUpdater := updaters.NewPluralKitUpdater()
	pluralKitUpdater.HTTP = httpClient

	return &UserPipeline{
		Config: cfg,
		Updaters: map[updaters.Platform]updaters.Updater{
			updaters.PlatformVRChat:              vrchatUpdater,
			updaters.PlatformDiscordStatusMessage: discordUpdater,
			updaters.PlatformPluralKit:            pluralKitUpdater,
		},
		Notify:   notify,
		receiver: receiver,
	}
}

// Run blocks until ctx is canceled or the fronter channel closes. It
// performs one-time setup, publishes the resulting statuses, then applies
// every subsequent fronter-list change to every enabled updater.
func (p *UserPipeline) Run(ctx context.Context) {
	log := utils.Log.WithField("user_id", p.Config.UserID.String())
	log.Info("pipeline starting")

	for platform, u := range p.Updaters {
		if err := u.Setup(ctx, p.Config); err != nil {
			log.WithError(err).WithField("platform", platform).Warn("updater setup failed")
		}
	}
	p.publishStatuses(log)

	for {
		fronters, ok := p.receiver.Recv(ctx)
		if !ok {
			log.Warn("pipeline: fronter channel closed or context canceled, stopping")
			return
		}

		for platform, u := range p.Updaters {
			if err := u.Update(ctx, p.Config, fronters); err != nil {
				log.WithError(err).WithField("platform", platform).Warn("updater failed, skipping")
			}
		}
		p.publishStatuses(log)
	}
}

func (p *UserPipeline) publishStatuses(log *logrus.Entry) {
	statuses := make(updaters.Statuses, len(p.Updaters))
	for platform, u := range p.Updaters {
		statuses[platform] = u.Status()
	}
	if p.Notify != nil {
		p.Notify(statuses)
	}
}
