package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultDataDir      = "data"
	DefaultJWTExpiresIn = "24h"
	DefaultPollMinutes  = 3
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Discord   DiscordConfig   `toml:"discord"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Data      DataConfig      `toml:"data"`
	Watcher   WatcherConfig   `toml:"watcher"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DiscordConfig struct {
	Token   string `toml:"token"`
	AppID   string `toml:"app_id"`
	GuildID string `toml:"guild_id"`
}

type DashboardConfig struct {
	Password     string `toml:"password"`
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type DataConfig struct {
	Dir string `toml:"dir"`
}

type WatcherConfig struct {
	Enabled     bool `toml:"enabled"`
	PollMinutes int  `toml:"poll_minutes"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Dashboard: DashboardConfig{
			Password:     "change-your-password-here",
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Data: DataConfig{
			Dir: DefaultDataDir,
		},
		Watcher: WatcherConfig{
			Enabled:     true,
			PollMinutes: DefaultPollMinutes,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if cfg.Watcher.PollMinutes < 1 {
		cfg.Watcher.PollMinutes = 1
	}

	return cfg, nil
}
