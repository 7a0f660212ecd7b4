// Command friendaccepter runs the "global manager" sibling process: with a
// single admin-owned Simply Plural token, it accepts every pending incoming
// friend request, then stays connected and re-accepts whenever a new
// request notification arrives. SP2Any's ViaFriend privacy mode depends on
// a system actually having granted SP2Any friendship, which otherwise
// requires someone to click "accept" by hand.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sp2any/src/plurality"
	"sp2any/src/upstream"
	"sp2any/src/utils"
)

const friendRequestNotificationTitle = "Friend request received"

func main() {
	_ = godotenv.Load()
	utils.Configure()

	token := os.Getenv("GLOBAL_SP2ANY_SIMPLY_PLURAL_READ_WRITE_ADMIN_TOKEN")
	if token == "" {
		utils.Log.Fatal("friendaccepter: GLOBAL_SP2ANY_SIMPLY_PLURAL_READ_WRITE_ADMIN_TOKEN is required")
	}

	client := plurality.NewClient("https://api.apparyllis.com/v1", token, 30*time.Second)

	acceptAll := func(ctx context.Context) error {
		if err := client.AcceptAllFriendRequests(ctx); err != nil {
			utils.Log.WithError(err).Warn("friendaccepter: accept all friend requests failed")
		}
		return nil
	}

	sub := &upstream.Subscriber{
		LogPrefix: "global-mgr",
		Token:     token,
		OnConnect: acceptAll,
		OnEvent:   onEvent(acceptAll),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sub.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	utils.Log.Info("friendaccepter: shutting down...")
}

type notificationEvent struct {
	Msg   *string `json:"msg"`
	Title *string `json:"title"`
}

// onEvent reacts only to a "Friend request received" notification; every
// other event is ignored, same as the source's default match arm.
func onEvent(acceptAll func(context.Context) error) func(context.Context, string) error {
	return func(ctx context.Context, raw string) error {
		var ev notificationEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil
		}
		if ev.Msg == nil || *ev.Msg != "notification" || ev.Title == nil || *ev.Title != friendRequestNotificationTitle {
			return nil
		}
		utils.Log.Info("friendaccepter: friend request received")
		return acceptAll(ctx)
	}
}
