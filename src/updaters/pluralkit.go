package updaters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"sp2any/src/config"
	"sp2any/src/metrics"
	"sp2any/src/plurality"
)

// pluralKitUserAgent identifies this updater to PluralKit's API, as PK's
// terms of service require (spec §6).
const pluralKitUserAgent = "sp2any-to-pluralkit-updater/1.0 (+https://github.com)"

// PluralKitUpdater propagates the current fronter set into a PluralKit
// switch, preserving the user's existing member ordering where possible
// (spec §4.4.4).
type PluralKitUpdater struct {
	*state
	HTTP *http.Client
}

// NewPluralKitUpdater constructs a PluralKitUpdater.
func NewPluralKitUpdater() *PluralKitUpdater {
	return &PluralKitUpdater{state: newState()}
}

func (u *PluralKitUpdater) Setup(ctx context.Context, cfg config.ForUpdater) error {
	u.setDisabled(!cfg.EnableToPluralKit)
	u.beginSetup()
	u.record(nil)
	return nil
}

func (u *PluralKitUpdater) Update(ctx context.Context, cfg config.ForUpdater, fronters []plurality.Fronter) error {
	if !cfg.EnableToPluralKit {
		u.setDisabled(true)
		return nil
	}
	u.setDisabled(false)

	newMembers := make([]string, 0, len(fronters))
	for _, f := range fronters {
		if f.PluralKitID != nil && *f.PluralKitID != "" {
			newMembers = append(newMembers, *f.PluralKitID)
		}
	}

	existing, err := u.fetchMostRecentSwitchMembers(ctx, cfg)
	if err != nil {
		u.record(err)
		return err
	}

	plan := PlanSwitch(newMembers, existing)
	if sameMembers(plan, existing) {
		u.record(nil)
		return nil
	}

	err = u.postSwitch(ctx, cfg, plan)
	u.record(err)
	return err
}

// PlanSwitch computes the new switch's member list: existing members that
// also appear in newMembers keep their existing relative order, then
// strictly-new members are appended in caller order (spec §4.4.4 step 3,
// testable property spec §8).
func PlanSwitch(newMembers, existing []string) []string {
	newSet := make(map[string]struct{}, len(newMembers))
	for _, m := range newMembers {
		newSet[m] = struct{}{}
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		existingSet[m] = struct{}{}
	}

	plan := make([]string, 0, len(newMembers))
	for _, m := range existing {
		if _, ok := newSet[m]; ok {
			plan = append(plan, m)
		}
	}
	for _, m := range newMembers {
		if _, ok := existingSet[m]; !ok {
			plan = append(plan, m)
		}
	}
	return plan
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := make(map[string]struct{}, len(a))
	for _, m := range a {
		as[m] = struct{}{}
	}
	for _, m := range b {
		if _, ok := as[m]; !ok {
			return false
		}
	}
	return true
}

type switchWire struct {
	Members []string `json:"members"`
}

func (u *PluralKitUpdater) fetchMostRecentSwitchMembers(ctx context.Context, cfg config.ForUpdater) ([]string, error) {
	url := cfg.PluralKitBaseURL + "/systems/@me/switches?limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	u.setPKHeaders(req, cfg)

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pluralkit: fetch switches: %w", err)
	}
	defer resp.Body.Close()
	recordRateLimitMetrics(cfg.UserID.String(), resp.Header)
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("pluralkit: unauthorized")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("pluralkit: fetch switches: status %d", resp.StatusCode)
	}

	var wire []switchWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("pluralkit: decode switches: %w", err)
	}
	if len(wire) == 0 {
		return nil, nil
	}
	return wire[0].Members, nil
}

func (u *PluralKitUpdater) postSwitch(ctx context.Context, cfg config.ForUpdater, members []string) error {
	body, _ := json.Marshal(switchWire{Members: members})
	url := cfg.PluralKitBaseURL + "/systems/@me/switches"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	u.setPKHeaders(req, cfg)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("pluralkit: post switch: %w", err)
	}
	defer resp.Body.Close()
	recordRateLimitMetrics(cfg.UserID.String(), resp.Header)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("pluralkit: post switch: status %d", resp.StatusCode)
	}
	return nil
}

func (u *PluralKitUpdater) setPKHeaders(req *http.Request, cfg config.ForUpdater) {
	req.Header.Set("Authorization", cfg.PluralKitToken)
	req.Header.Set("User-Agent", pluralKitUserAgent)
}

// recordRateLimitMetrics records PluralKit's X-RateLimit-* response headers
// into metrics, as required by spec §4.4.4 step 5.
func recordRateLimitMetrics(userID string, h http.Header) {
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			metrics.SetPluralKitRateLimitRemaining(userID, n)
		}
	}
}
