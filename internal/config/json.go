package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration is a time.Duration that unmarshals from JSON strings like "30s".
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler for Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and
// string-encoded durations for the optional config file.
type StructuredJSONConfig struct {
	Engine struct {
		ClientID       string   `json:"client_id"`
		BaseURL        string   `json:"base_url"`
		Token          string   `json:"token"`
		RequestTimeout Duration `json:"request_timeout"`
		MaxRetries     int      `json:"max_retries"`
		BackoffBase    Duration `json:"backoff_base"`
		BackoffCeiling Duration `json:"backoff_ceiling"`
		PullInterval   Duration `json:"pull_interval"`
		PushBatchSize  int      `json:"push_batch_size"`
		PullPageSize   int      `json:"pull_page_size"`
		OfflineFirst   bool     `json:"offline_first"`
		ProbeInterval  Duration `json:"probe_interval"`
	} `json:"engine,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		TokenSignKey   string   `json:"token_sign_key"`
		TokenIssuer    string   `json:"token_issuer"`
	} `json:"server,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		Local struct {
			Path string `json:"path"`
		} `json:"local,omitempty"`
	} `json:"storage,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	return &StructuredConfig{
		Engine: Engine{
			ClientID:       jsonCfg.Engine.ClientID,
			BaseURL:        jsonCfg.Engine.BaseURL,
			Token:          jsonCfg.Engine.Token,
			RequestTimeout: time.Duration(jsonCfg.Engine.RequestTimeout),
			MaxRetries:     jsonCfg.Engine.MaxRetries,
			BackoffBase:    time.Duration(jsonCfg.Engine.BackoffBase),
			BackoffCeiling: time.Duration(jsonCfg.Engine.BackoffCeiling),
			PullInterval:   time.Duration(jsonCfg.Engine.PullInterval),
			PushBatchSize:  jsonCfg.Engine.PushBatchSize,
			PullPageSize:   jsonCfg.Engine.PullPageSize,
			OfflineFirst:   jsonCfg.Engine.OfflineFirst,
			ProbeInterval:  time.Duration(jsonCfg.Engine.ProbeInterval),
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
			TokenSignKey:   jsonCfg.Server.TokenSignKey,
			TokenIssuer:    jsonCfg.Server.TokenIssuer,
		},
		Storage: Storage{
			DB:    DB{DSN: jsonCfg.Storage.DB.DSN},
			Local: Local{Path: jsonCfg.Storage.Local.Path},
		},
	}, nil
}
