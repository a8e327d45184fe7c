package config

import "time"

// FeedConfig is the top-level configuration for the feed daemon.
type FeedConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Tournament TournamentConfig `yaml:"tournament"`
	Market     MarketConfig     `yaml:"market"`
	Connection ConnectionConfig `yaml:"connection"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this feed instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// GatewayConfig holds endpoints and identity for the platform gateway.
type GatewayConfig struct {
	SocketURL string        `yaml:"socket_url"` // Live channel endpoint (ws:// or wss://)
	RestURL   string        `yaml:"rest_url"`   // REST API base URL
	Token     string        `yaml:"token"`      // Bearer token; usually ${TOURNAMENT_FEED_TOKEN}
	Timeout   time.Duration `yaml:"timeout"`    // REST request timeout
}

// TournamentConfig selects the tournament to follow.
type TournamentConfig struct {
	ID       string `yaml:"id"`       // Tournament identifier
	Username string `yaml:"username"` // Participant whose rank is extracted
}

// MarketConfig fixes the tracked instrument set.
type MarketConfig struct {
	Symbols []string `yaml:"symbols"` // Lowercase short tickers
}

// ConnectionConfig tunes the live channel.
type ConnectionConfig struct {
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	AckTimeout         time.Duration `yaml:"ack_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BufferSize         int           `yaml:"buffer_size"`
}

// HealthConfig configures the health endpoint.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
