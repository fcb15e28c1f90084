// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Catalog API - these keys configure communication with the remote anime catalog service.
const (
	APIBaseURL        = "api.base_url"
	APITimeoutSeconds = "api.timeout"
	APITLSFingerprint = "api.tls_fingerprint"
)

// Media Playback - these keys maintain the state and configuration for the playback engine.
const (
	Player         = "player.default"
	PlayerAutoplay = "player.autoplay"
)

// Watch Positions - these keys configure the persistence of playback progress state.
const (
	PositionsSaveOnWatch = "positions.save_on_watch"
	PositionsCacheTTL    = "positions.cache_ttl"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
