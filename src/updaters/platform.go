package updaters

// Platform names one destination a pipeline can update (spec §3). Bridge is
// "foreign managed": the pipeline never calls Setup/Update on it directly,
// it only publishes rich-presence projections for BridgeStream to forward;
// its status is instead reported back by the connected bridge itself.
type Platform string

const (
	PlatformVRChat               Platform = "VRChat"
	PlatformDiscordStatusMessage Platform = "DiscordStatusMessage"
	PlatformPluralKit            Platform = "PluralKit"
	PlatformDiscordBridge        Platform = "Discord"
)

// ForeignManaged reports whether this platform's status is reported by an
// external process (the desktop bridge) rather than computed locally.
func (p Platform) ForeignManaged() bool {
	return p == PlatformDiscordBridge
}

// ServerManagedPlatforms lists every platform whose Setup/Update the
// pipeline itself drives, in a fixed order so status maps render
// deterministically (spec §4.4, "fixed updater enumeration order").
func ServerManagedPlatforms() []Platform {
	return []Platform{PlatformVRChat, PlatformDiscordStatusMessage, PlatformPluralKit}
}

// Statuses maps every platform (server-managed and foreign-managed) to its
// current observable status.
type Statuses map[Platform]Status
