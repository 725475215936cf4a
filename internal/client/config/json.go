package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/msavina/craftmarket/internal/flagx"
	"github.com/msavina/craftmarket/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so JSON can specify the timeout either as a string
// like "5s" or as integer nanoseconds.
type JsonConfig struct {
	APIBaseURL     string         `json:"api_base_url"`
	CacheDSN       string         `json:"cache_dsn"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flags. If no file is named, nothing happens. Read or
// unmarshal errors panic (caller may recover); a zero field in the JSON
// leaves the existing value alone.
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

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.CacheDSN != "" {
		cfg.CacheDSN = jc.CacheDSN
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
}
