package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Rooms     RoomConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Address         string
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type ConnectionLimitConfig struct {
	MaxPerIP int    `mapstructure:"maxPerIP"`
	Mode     string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type RoomConfig struct {
	// How long an empty room survives before its state is discarded.
	GracePeriod time.Duration `mapstructure:"gracePeriod"`
	// Whether clear-canvas is echoed back to the sender in addition to peers.
	ClearEcho bool `mapstructure:"clearEcho"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
