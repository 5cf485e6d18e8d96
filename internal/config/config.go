package config

import "fmt"

// Config holds all recall configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Retrieval RetrievalConfig `toml:"retrieval"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// RetrievalConfig names the spreading-activation tunables. The content
// match floor is the seed level for raw content matches.
type RetrievalConfig struct {
	TopK                int     `toml:"top_k"`
	Hops                int     `toml:"hops"`
	Decay               float64 `toml:"decay"`
	InhibitionThreshold float64 `toml:"inhibition_threshold"`
	ContentMatchFloor   float64 `toml:"content_match_floor"`
	TemporalDecay       bool    `toml:"temporal_decay"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37878,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Retrieval: RetrievalConfig{
			TopK:                5,
			Hops:                2,
			Decay:               0.7,
			InhibitionThreshold: 0.3,
			ContentMatchFloor:   0.8,
			TemporalDecay:       true,
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
