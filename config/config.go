package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/room"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" envPrefix:"HEIST_SERVER_"`
	Database DatabaseConfig `mapstructure:"database" envPrefix:"HEIST_DB_"`
	Heist    HeistConfig    `mapstructure:"heist" envPrefix:"HEIST_"`
	Log      LogConfig      `mapstructure:"log" envPrefix:"HEIST_LOG_"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address" env:"HTTP_ADDRESS"`
	RPCAddress     string `mapstructure:"rpc_address" env:"RPC_ADDRESS"`
	HealthAddress  string `mapstructure:"health_address" env:"HEALTH_ADDRESS"`
	MetricsAddress string `mapstructure:"metrics_address" env:"METRICS_ADDRESS"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver" env:"DRIVER"` // gorm | postgres | sqlite
	Postgres PostgresConfig `mapstructure:"postgres" envPrefix:"POSTGRES_"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" envPrefix:"SQLITE_"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host" env:"HOST"`
	Port     int    `mapstructure:"port" env:"PORT"`
	User     string `mapstructure:"user" env:"USER"`
	Password string `mapstructure:"password" env:"PASSWORD"`
	DBName   string `mapstructure:"dbname" env:"DBNAME"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" env:"PATH"`
}

type HeistConfig struct {
	LobbyDuration    time.Duration `mapstructure:"lobby_duration" env:"LOBBY_DURATION"`
	MoveTimeout      time.Duration `mapstructure:"move_timeout" env:"MOVE_TIMEOUT"`
	ChallengeTimeout time.Duration `mapstructure:"challenge_timeout" env:"CHALLENGE_TIMEOUT"`
	MaxVaults        int           `mapstructure:"max_vaults" env:"MAX_VAULTS"`
	BaseSize         int           `mapstructure:"base_size" env:"BASE_SIZE"`
	WallBase         int           `mapstructure:"wall_base" env:"WALL_BASE"`
	ObstacleRatio    float64       `mapstructure:"obstacle_ratio" env:"OBSTACLE_RATIO"`
	RewardPerVault   int64         `mapstructure:"reward_per_vault" env:"REWARD_PER_VAULT"`
}

type LogConfig struct {
	Level string `mapstructure:"level" env:"LEVEL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.health_address", ":8082")
	v.SetDefault("server.metrics_address", ":9090")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "heist")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "heist")
	v.SetDefault("database.sqlite.path", "heist.db")

	def := room.DefaultSettings()
	v.SetDefault("heist.lobby_duration", def.LobbyDuration)
	v.SetDefault("heist.move_timeout", def.Heist.MoveTimeout)
	v.SetDefault("heist.challenge_timeout", def.Heist.ChallengeTimeout)
	v.SetDefault("heist.max_vaults", def.Heist.MaxVaults)
	v.SetDefault("heist.base_size", def.Heist.BaseSize)
	v.SetDefault("heist.wall_base", def.WallBase)
	v.SetDefault("heist.obstacle_ratio", def.ObstacleRatio)
	v.SetDefault("heist.reward_per_vault", def.Heist.RewardPerVault)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path, if present, over the defaults and
// then applies HEIST_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings a heist cannot run with.
func (c *Config) Validate() error {
	h := c.Heist
	switch {
	case h.MaxVaults < 1:
		return fmt.Errorf("config: heist.max_vaults must be at least 1, got %d", h.MaxVaults)
	case h.BaseSize < 1:
		return fmt.Errorf("config: heist.base_size must be at least 1, got %d", h.BaseSize)
	case h.LobbyDuration <= 0 || h.MoveTimeout <= 0 || h.ChallengeTimeout <= 0:
		return fmt.Errorf("config: heist durations must be positive")
	case h.ObstacleRatio < 0 || h.ObstacleRatio > 1:
		return fmt.Errorf("config: heist.obstacle_ratio must be within [0, 1], got %v", h.ObstacleRatio)
	case h.WallBase < 0 || h.RewardPerVault < 0:
		return fmt.Errorf("config: heist.wall_base and heist.reward_per_vault must not be negative")
	}
	switch c.Database.Driver {
	case "gorm", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// RoomSettings converts the heist section for room.Env.
func (c *Config) RoomSettings() room.Settings {
	return room.Settings{
		LobbyDuration: c.Heist.LobbyDuration,
		Heist: heist.Config{
			MaxVaults:        c.Heist.MaxVaults,
			BaseSize:         c.Heist.BaseSize,
			MoveTimeout:      c.Heist.MoveTimeout,
			ChallengeTimeout: c.Heist.ChallengeTimeout,
			RewardPerVault:   c.Heist.RewardPerVault,
		},
		WallBase:      c.Heist.WallBase,
		ObstacleRatio: c.Heist.ObstacleRatio,
	}
}
