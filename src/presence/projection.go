// Package presence renders a resolved fronter list into the rich-presence
// payload the desktop bridge forwards to the local Discord client over IPC
// (grounded in base-src's DiscordRichPresence, spec §4.4.5/§7). The server
// never talks to Discord's gateway for this destination: it only ever
// produces this projection and hands it to BridgeStream.
package presence

import (
	"strings"
	"time"

	"sp2any/src/config"
	"sp2any/src/plurality"
)

// ActivityType mirrors Discord's activity type enum, restricted to the
// subset the source's DiscordActivityType exposes.
type ActivityType uint8

const (
	ActivityPlaying   ActivityType = 0
	ActivityListening ActivityType = 2
	ActivityWatching  ActivityType = 3
	ActivityCustom    ActivityType = 4
	ActivityCompeting ActivityType = 5
)

// StatusDisplayType selects which of Name/State/Details Discord surfaces in
// the member list.
type StatusDisplayType uint8

const (
	StatusDisplayName    StatusDisplayType = 0
	StatusDisplayState   StatusDisplayType = 1
	StatusDisplayDetails StatusDisplayType = 2
)

// Projection is the full rich-presence payload, every field optional except
// the two enums (spec §4.4.5). A nil *Projection means "clear activity".
type Projection struct {
	ActivityType      ActivityType
	StatusDisplayType StatusDisplayType

	Details    *string
	DetailsURL *string
	State      *string
	StateURL   *string

	StartTime *int64
	EndTime   *int64

	LargeImageURL  *string
	LargeImageText *string
	SmallImageURL  *string
	SmallImageText *string

	PartyCurrent *int32
	PartyMax     *int32

	ButtonLabel *string
	ButtonURL   *string
}

// Project turns the resolved fronter list into a Projection, or nil when
// there is nothing fronting to show (the bridge then clears its activity).
// It uses Custom/Name display (activity type Custom, status display Name)
// with the same prefix/no-fronters/truncation formatting the text-based
// destinations use, so all destinations read the same underlying rule.
func Project(cfg config.ForUpdater, fronters []plurality.Fronter) *Projection {
	if len(fronters) == 0 {
		return nil
	}

	names := make([]string, 0, len(fronters))
	var earliest *time.Time
	for _, f := range fronters {
		names = append(names, f.DisplayName(cfg.UsePluralKitName != 0))
		if f.StartTime != nil && (earliest == nil || f.StartTime.Before(*earliest)) {
			earliest = f.StartTime
		}
	}

	details := strings.Join(names, ", ")
	if cfg.StatusPrefix != "" {
		details = cfg.StatusPrefix + " " + details
	}

	proj := &Projection{
		ActivityType:      ActivityCustom,
		StatusDisplayType: StatusDisplayName,
		Details:           &details,
	}

	if earliest != nil {
		unixMillis := earliest.UnixMilli()
		proj.StartTime = &unixMillis
	}

	current := int32(len(fronters))
	proj.PartyCurrent = &current

	return proj
}
