// Package fleet owns every user's running pipeline and the channels that
// feed and observe it. Grounded in updater/manager.rs's UpdaterManager, with
// one deliberate strengthening: RestartUpdater joins the previous pipeline
// goroutine before starting the replacement (the source only calls
// JoinHandle::abort without awaiting it), recorded as an Open Question
// resolution.
package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sp2any/src/communication"
	"sp2any/src/concurrency"
	"sp2any/src/config"
	"sp2any/src/fronts"
	"sp2any/src/metrics"
	"sp2any/src/pipeline"
	"sp2any/src/plurality"
	"sp2any/src/secretstore"
	"sp2any/src/updaters"
	"sp2any/src/upstream"
	"sp2any/src/users"
	"sp2any/src/utils"
)

// ForeignStatusUpdate is one (platform, status) report the FleetManager
// accepts from outside the pipeline it owns — currently only the bridge,
// reporting the Discord-rich-presence platform's status over BridgeStream.
type ForeignStatusUpdate struct {
	Platform updaters.Platform
	Status   updaters.Status
}

type pipelineHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is the single process-wide owner of every user's pipeline,
// fronter channel, and status map (spec §4.4/§9).
type Manager struct {
	Store *secretstore.Store

	mu              sync.Mutex
	pipelines       map[users.UserId]*pipelineHandle
	statuses        map[users.UserId]updaters.Statuses
	fronterChannels map[users.UserId]*communication.LatestValueChannel[[]plurality.Fronter]
	foreignChannels map[users.UserId]*communication.LatestValueChannel[ForeignStatusUpdate]
}

// New constructs an empty Manager backed by store.
func New(store *secretstore.Store) *Manager {
	return &Manager{
		Store:           store,
		pipelines:       make(map[users.UserId]*pipelineHandle),
		statuses:        make(map[users.UserId]updaters.Statuses),
		fronterChannels: make(map[users.UserId]*communication.LatestValueChannel[[]plurality.Fronter]),
		foreignChannels: make(map[users.UserId]*communication.LatestValueChannel[ForeignStatusUpdate]),
	}
}

// fronterChannel returns userID's fronter broadcast channel, creating it on
// first use. Fronter lists only matter when they differ from the last one
// published, so this channel uses OnlyOnChange.
func (m *Manager) fronterChannel(userID users.UserId) *communication.LatestValueChannel[[]plurality.Fronter] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.fronterChannels[userID]; ok {
		return ch
	}
	ch := communication.New(communication.Config[[]plurality.Fronter]{
		Policy: communication.OnlyOnChange,
		Equal:  fronterListsEqual,
	})
	m.fronterChannels[userID] = ch
	return ch
}

func fronterListsEqual(a, b []plurality.Fronter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FronterID != b[i].FronterID {
			return false
		}
	}
	return true
}

// PublishFronters delivers a freshly resolved fronter list for userID; it
// is the single entry point UpstreamSubscriber.OnConnect/OnEvent-triggered
// resolution uses to feed every subscribed pipeline and BridgeStream.
func (m *Manager) PublishFronters(userID users.UserId, fronters []plurality.Fronter) {
	m.fronterChannel(userID).Send(fronters)
}

// SubscribeFronterChannel returns a fresh receiver over userID's fronter
// channel, used by UserPipeline and BridgeStream alike.
func (m *Manager) SubscribeFronterChannel(userID users.UserId) *communication.Receiver[[]plurality.Fronter] {
	return m.fronterChannel(userID).Subscribe()
}

// FronterChannelGetMostRecentValue returns the last fronter list published
// for userID without subscribing, used by the public fronting-status page
// (spec §6, "read-only, no websocket needed").
func (m *Manager) FronterChannelGetMostRecentValue(userID users.UserId) ([]plurality.Fronter, bool) {
	return m.fronterChannel(userID).Latest()
}

// GetForeignStatusChannel returns a weak, non-owning handle BridgeStream
// uses to report the bridge-managed platform's status — a handle, not a
// clone of the Manager itself, so a crashed bridge connection cannot keep
// the Manager's other state alive (spec §9 design note, "foreign status
// channel is a narrow back-reference").
func (m *Manager) GetForeignStatusChannel(userID users.UserId) *communication.LatestValueChannel[ForeignStatusUpdate] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.foreignChannels[userID]; ok {
		return ch
	}
	ch := communication.New(communication.Config[ForeignStatusUpdate]{Policy: communication.AlwaysImmediate})
	m.foreignChannels[userID] = ch
	return ch
}

// NotifyUpdaterStatuses merges a freshly reported status map into userID's
// stored statuses (additive: platforms absent from statuses keep their
// prior value, since the bridge and the pipeline report on independent
// schedules).
func (m *Manager) NotifyUpdaterStatuses(userID users.UserId, statuses updaters.Statuses) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := m.statuses[userID]
	if merged == nil {
		merged = make(updaters.Statuses)
	}
	for platform, status := range statuses {
		merged[platform] = status
	}
	m.statuses[userID] = merged
}

// GetUpdatersStatuses returns userID's last known per-platform status map.
func (m *Manager) GetUpdatersStatuses(userID users.UserId) (updaters.Statuses, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	statuses, ok := m.statuses[userID]
	if !ok {
		return nil, fmt.Errorf("fleet: no updaters found for user %s", userID)
	}
	return statuses, nil
}

// RestartUpdater stops userID's current pipeline, if any, waits for it to
// fully exit, then starts a replacement from cfg. Synchronous-join is a
// deliberate strengthening over the source's fire-and-forget abort — see
// DESIGN.md. Besides the destination-updater pipeline, this also starts the
// upstream Simply Plural subscription that feeds it: one auto-reconnecting
// websocket per user, re-resolving fronts on every (re)connect and every
// subsequent change notification.
func (m *Manager) RestartUpdater(ctx context.Context, userID users.UserId, cfg config.ForUpdater) {
	m.mu.Lock()
	existing := m.pipelines[userID]
	m.mu.Unlock()

	if existing != nil {
		utils.Log.WithField("user_id", userID.String()).Info("fleet: aborting existing pipeline")
		existing.cancel()
		<-existing.done
	}

	pipelineCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	receiver := m.SubscribeFronterChannel(userID)
	p := pipeline.New(cfg, m.Store, receiver, func(statuses updaters.Statuses) {
		m.NotifyUpdaterStatuses(userID, statuses)
	})

	resolve := m.resolveAndPublishFunc(userID, cfg)
	sub := &upstream.Subscriber{
		LogPrefix: userID.String(),
		Token:     cfg.SimplyPluralToken,
		OnConnect: resolve,
		OnEvent:   onRelevantChange(resolve),
	}

	m.mu.Lock()
	m.pipelines[userID] = &pipelineHandle{cancel: cancel, done: done}
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	concurrency.GoSafe(func() {
		defer wg.Done()
		defer receiver.Unsubscribe()
		p.Run(pipelineCtx)
	})
	concurrency.GoSafe(func() {
		defer wg.Done()
		sub.Run(pipelineCtx)
	})
	go func() {
		wg.Wait()
		close(done)
	}()

	utils.Log.WithField("user_id", userID.String()).Info("fleet: restarted pipeline")
}

// resolveAndPublishFunc builds the OnConnect/OnEvent callback UpstreamSubscriber
// drives: re-run FrontsResolver against cfg and publish the result, logging
// (not failing the subscriber) on a transient SP API error.
func (m *Manager) resolveAndPublishFunc(userID users.UserId, cfg config.ForUpdater) func(context.Context) error {
	client := plurality.NewClient(cfg.SimplyPluralBaseURL, cfg.SimplyPluralToken, 30*time.Second)
	opts := fronts.Options{
		ShowMembersNonArchived:            cfg.ShowMembersNonArchived,
		ShowMembersArchived:               cfg.ShowMembersArchived,
		RespectFrontNotificationsDisabled: cfg.RespectFrontNotificationsDisabled,
		ShowCustomFronts:                  cfg.ShowCustomFronts,
		PrivacyFineGrained:                cfg.PrivacyFineGrained,
		PrivacyFineGrainedBuckets:         cfg.PrivacyBuckets,
	}
	return func(ctx context.Context) error {
		fronters, err := fronts.Resolve(ctx, client, opts)
		if err != nil {
			utils.Log.WithError(err).WithField("user_id", userID.String()).Warn("fleet: resolve fronts failed")
			return nil
		}
		metrics.RecordFetchFronts(userID.String(), len(fronters), 0, 0)
		m.PublishFronters(userID, fronters)
		return nil
	}
}

// onRelevantChange wraps resolve so it only runs for SP websocket events
// plurality.RelevantlyChanged actually classifies as fronting-relevant,
// instead of re-resolving on every unrelated collection update.
func onRelevantChange(resolve func(context.Context) error) func(context.Context, string) error {
	return func(ctx context.Context, raw string) error {
		var ev plurality.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil
		}
		if !plurality.RelevantlyChanged(ev) {
			return nil
		}
		return resolve(ctx)
	}
}

// RestartAllOnStartup restarts every persisted user's pipeline, logging and
// skipping (not aborting the whole process on) any single user's failure
// to load — mirrors the source's best-effort startup recovery.
func (m *Manager) RestartAllOnStartup(ctx context.Context, appUserSecret secretstore.ApplicationUserSecrets) {
	userIDs, err := m.Store.GetAllUsers(ctx)
	if err != nil {
		utils.Log.WithError(err).Error("fleet: restart all on startup: list users failed")
		return
	}

	for _, userID := range userIDs {
		entries, err := m.Store.GetUserSecrets(ctx, userID)
		if err != nil {
			utils.Log.WithError(err).WithField("user_id", userID.String()).Warn("fleet: skipping user, could not load secrets")
			continue
		}
		raw := config.FromEntries(entries)
		valid, err := config.NewValidConfig(raw)
		if err != nil {
			utils.Log.WithError(err).WithField("user_id", userID.String()).Warn("fleet: skipping user, invalid config")
			continue
		}
		m.RestartUpdater(ctx, userID, config.NewForUpdater(userID, valid))
	}
}

// StopAll cancels every running pipeline and waits briefly for clean exit,
// used during graceful shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	handles := make([]*pipelineHandle, 0, len(m.pipelines))
	for _, h := range m.pipelines {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	deadline := time.After(5 * time.Second)
	for _, h := range handles {
		select {
		case <-h.done:
		case <-deadline:
			return
		}
	}
}
