package bridge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"sp2any/src/communication"
	"sp2any/src/config"
	"sp2any/src/fleet"
	"sp2any/src/plurality"
	"sp2any/src/presence"
	"sp2any/src/secretstore"
	"sp2any/src/updaters"
	"sp2any/src/utils"
)

// serverToBridgeMessage is the frame sent from server to bridge: a rich
// presence projection, or null to mean "clear the activity" (spec §4.5.2,
// grounded on ServerToBridgeSseMessage).
type serverToBridgeMessage struct {
	DiscordRichPresence *presence.Projection `json:"discord_rich_presence"`
}

// bridgeToServerMessage is the frame the bridge sends back, reporting the
// status of its local Discord IPC connection (BridgeToServerSseMessage).
type bridgeToServerMessage struct {
	DiscordUpdaterStatus updaters.Status `json:"discord_updater_status"`
}

// Stream is the websocket handler a paired desktop bridge connects to. One
// connection serves exactly one user, resolved from the bridge's claimed
// Discord user id and bridge secret, the pairing ceremony's output. The
// source authenticated this route with the website's own login JWT, which a
// standalone desktop process cannot hold; using the bridge secret here
// instead is a documented deviation, see DESIGN.md.
type Stream struct {
	Store    *secretstore.Store
	Fleet    *fleet.Manager
	Upgrader websocket.Upgrader
}

// NewStream constructs a Stream backed by store and fleetManager.
func NewStream(store *secretstore.Store, fleetManager *fleet.Manager) *Stream {
	return &Stream{
		Store: store,
		Fleet: fleetManager,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the connection, then relays fronter-list updates
// out as rich-presence projections and reads bridge status reports back in,
// until either side closes or a frame fails to parse.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	discordUserID := r.URL.Query().Get("discord_user_id")
	bridgeSecret := r.URL.Query().Get("bridge_secret")
	if discordUserID == "" || bridgeSecret == "" {
		http.Error(w, "missing discord_user_id or bridge_secret", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	userID, err := s.Store.FindUserByDiscordID(ctx, discordUserID)
	if err != nil {
		http.Error(w, "unknown discord_user_id", http.StatusUnauthorized)
		return
	}
	ok, err := s.Store.ValidateBridgeSecret(ctx, userID, bridgeSecret)
	if err != nil || !ok {
		http.Error(w, "invalid bridge secret", http.StatusUnauthorized)
		return
	}

	entries, err := s.Store.GetUserSecrets(ctx, userID)
	if err != nil {
		http.Error(w, "could not load user config", http.StatusInternalServerError)
		return
	}
	valid, err := config.NewValidConfig(config.FromEntries(entries))
	if err != nil {
		http.Error(w, "invalid user config", http.StatusInternalServerError)
		return
	}
	cfg := config.NewForUpdater(userID, valid)

	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Log.WithError(err).Warn("bridge: websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := utils.Log.WithField("user_id", userID.String())
	log.Info("bridge: connected")

	foreignStatus := s.Fleet.GetForeignStatusChannel(userID)
	foreignStatus.Send(fleet.ForeignStatusUpdate{Platform: updaters.PlatformDiscordBridge, Status: updaters.Status{Kind: updaters.Starting}})
	defer foreignStatus.Send(fleet.ForeignStatusUpdate{Platform: updaters.PlatformDiscordBridge, Status: updaters.Status{Kind: updaters.ErrorKind, Message: "bridge disconnected"}})

	receiver := s.Fleet.SubscribeFronterChannel(userID)
	defer receiver.Unsubscribe()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go s.readLoop(conn, foreignStatus, cancel, readErr)

	if fronters, ok := s.Fleet.FronterChannelGetMostRecentValue(userID); ok {
		if err := writeProjection(conn, cfg, fronters); err != nil {
			log.WithError(err).Warn("bridge: initial write failed")
			return
		}
	}

	for {
		fronters, ok := receiver.Recv(streamCtx)
		if !ok {
			if err := <-readErr; err != nil {
				log.WithError(err).Info("bridge: connection closed")
			}
			return
		}
		if err := writeProjection(conn, cfg, fronters); err != nil {
			log.WithError(err).Warn("bridge: write failed")
			return
		}
	}
}

func writeProjection(conn *websocket.Conn, cfg config.ForUpdater, fronters []plurality.Fronter) error {
	proj := presence.Project(cfg, fronters)
	payload, err := json.Marshal(serverToBridgeMessage{DiscordRichPresence: proj})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readLoop forwards every bridge-reported status into the foreign status
// channel until the connection closes or a frame fails to deserialize, at
// which point it cancels the stream and reports the error on errCh.
func (s *Stream) readLoop(conn *websocket.Conn, foreignStatus *communication.LatestValueChannel[fleet.ForeignStatusUpdate], cancel context.CancelFunc, errCh chan<- error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			errCh <- nil
			cancel()
			return
		}
		var m bridgeToServerMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			errCh <- err
			cancel()
			return
		}
		foreignStatus.Send(fleet.ForeignStatusUpdate{Platform: updaters.PlatformDiscordBridge, Status: m.DiscordUpdaterStatus})
	}
}
