package config

// validate checks the merged [StructuredConfig]. The top-level config is a
// union of engine and server views, so it only enforces rules that hold for
// both; the role-specific views run their own checks.
func (cfg *StructuredConfig) validate() error {
	return nil
}

// EngineConfig is the client-side view of the merged configuration.
type EngineConfig struct {
	Engine Engine
	Local  Local
}

// validate rejects an engine view missing its identity, endpoint, or durable
// storage location. Retry and cadence knobs are defaulted by Normalize
// instead of rejected.
func (cfg *EngineConfig) validate() error {
	if cfg.Engine.ClientID == "" || cfg.Engine.BaseURL == "" {
		return ErrInvalidEngineConfigs
	}
	if cfg.Local.Path == "" {
		return ErrInvalidStorageConfigs
	}
	return nil
}

// ServerConfig is the reference server's view of the merged configuration.
type ServerConfig struct {
	Server Server
	DB     DB
}

func (cfg *ServerConfig) validate() error {
	if cfg.Server.HTTPAddress == "" || cfg.Server.TokenSignKey == "" {
		return ErrInvalidServerConfigs
	}
	if cfg.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}
	return nil
}

// GetEngineConfig builds and validates the engine view from the merged
// structured configuration and applies engine knob defaults.
func GetEngineConfig() (*EngineConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, err
	}

	engineCfg := &EngineConfig{
		Engine: cfg.Engine,
		Local:  cfg.Storage.Local,
	}
	engineCfg.Engine.Normalize()

	return engineCfg, engineCfg.validate()
}

// GetServerConfig builds and validates the server view from the merged
// structured configuration.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, err
	}

	serverCfg := &ServerConfig{
		Server: cfg.Server,
		DB:     cfg.Storage.DB,
	}

	return serverCfg, serverCfg.validate()
}
