package config

const (
	defaultAPITarget    = "http://localhost:8090"
	defaultServerListen = ":8090"
	defaultEventsTopic  = "chatstream.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget: defaultAPITarget,
		},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Events: EventsConfig{
			Enabled: false,
			Topic:   defaultEventsTopic,
		},
	}
}
