package pipeline

import (
	"context"
	"testing"
	"time"

	"sp2any/src/communication"
	"sp2any/src/config"
	"sp2any/src/plurality"
	"sp2any/src/updaters"
	"sp2any/src/users"
)

func TestPipelinePublishesStatusesOnEachChange(t *testing.T) {
	ch := communication.New[[]plurality.Fronter](communication.Config[[]plurality.Fronter]{
		Policy: communication.AlwaysImmediate,
	})
	receiver := ch.Subscribe()

	notifications := make(chan updaters.Statuses, 4)
	cfg := config.ForUpdater{UserID: users.NewUserId()}

	p := New(cfg, nil, receiver, func(s updaters.Statuses) {
		notifications <- s
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case s := <-notifications:
		if len(s) != len(p.Updaters) {
			t.Fatalf("expected one status per updater, got %d", len(s))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial status publish")
	}

	ch.Send([]plurality.Fronter{{Name: "Alice"}})

	select {
	case <-notifications:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for post-update status publish")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
}
