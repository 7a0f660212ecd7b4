package updaters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"sp2any/src/config"
	"sp2any/src/plurality"
)

// DiscordStatusMaxLength is Discord's custom-status character budget. The
// spec treats it as effectively non-binding (max_length = None) so it is
// not wired into the formatter's MaxLength, only kept for documentation.
const DiscordStatusMaxLength = 128

// DiscordStatusUpdater patches the user's Discord custom-status text
// (spec §4.4.3).
type DiscordStatusUpdater struct {
	*state
	HTTP *http.Client
}

// NewDiscordStatusUpdater constructs a DiscordStatusUpdater.
func NewDiscordStatusUpdater() *DiscordStatusUpdater {
	return &DiscordStatusUpdater{state: newState()}
}

// Setup is a no-op: this destination is stateless beyond its last error.
func (u *DiscordStatusUpdater) Setup(ctx context.Context, cfg config.ForUpdater) error {
	u.setDisabled(!cfg.EnableDiscordStatusMessage)
	u.beginSetup()
	u.record(nil)
	return nil
}

// Update formats the status with no length limit and no cleaning, then
// PATCHes it to Discord's user-settings endpoint.
func (u *DiscordStatusUpdater) Update(ctx context.Context, cfg config.ForUpdater, fronters []plurality.Fronter) error {
	if !cfg.EnableDiscordStatusMessage {
		u.setDisabled(true)
		return nil
	}
	u.setDisabled(false)

	formatted := FormatFrontingStatus(Format{
		Prefix:                cfg.StatusPrefix,
		StatusIfNoFronters:    cfg.StatusNoFronts,
		TruncateNamesToLength: cfg.StatusTruncateNamesTo,
		Cleaning:              NoClean,
		MaxLength:             nil,
	}, fronters, cfg.UsePluralKitName != 0)

	err := u.patch(ctx, cfg, formatted)
	u.record(err)
	return err
}

func (u *DiscordStatusUpdater) patch(ctx context.Context, cfg config.ForUpdater, text string) error {
	body, _ := json.Marshal(map[string]any{
		"custom_status": map[string]string{"text": text},
	})
	url := cfg.DiscordBaseURL + "/api/v10/users/@me/settings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", cfg.DiscordStatusMessageToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("discord status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("discord status: unauthorized")
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("discord status: status %d", resp.StatusCode)
	}
	return nil
}
