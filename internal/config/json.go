package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/moneta/internal/flagx"
	"github.com/dmitrijs2005/moneta/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like
// "500ms" or as integer nanoseconds. After parsing, values are copied into
// the runtime Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN        string         `json:"database_dsn"`
	UserID             string         `json:"user_id"`
	SyncEndpointAddr   string         `json:"sync_endpoint_addr"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	RefreshDebounce    timex.Duration `json:"refresh_debounce"`
	RefreshCooldown    timex.Duration `json:"refresh_cooldown"`
	ResolveGraceWindow timex.Duration `json:"resolve_grace_window"`
	SyncAttemptCeiling int            `json:"sync_attempt_ceiling"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags via flagx.JsonConfigFlags(); when no
// path is given, nothing is loaded. Zero-valued JSON fields leave the
// defaults in place.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.UserID != "" {
		cfg.UserID = jc.UserID
	}
	if jc.SyncEndpointAddr != "" {
		cfg.SyncEndpointAddr = jc.SyncEndpointAddr
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.RefreshDebounce.Duration > 0 {
		cfg.RefreshDebounce = time.Duration(jc.RefreshDebounce.Duration)
	}
	if jc.RefreshCooldown.Duration > 0 {
		cfg.RefreshCooldown = time.Duration(jc.RefreshCooldown.Duration)
	}
	if jc.ResolveGraceWindow.Duration > 0 {
		cfg.ResolveGraceWindow = time.Duration(jc.ResolveGraceWindow.Duration)
	}
	if jc.SyncAttemptCeiling > 0 {
		cfg.SyncAttemptCeiling = jc.SyncAttemptCeiling
	}
}
