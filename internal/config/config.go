package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Discord   DiscordConfig   `yaml:"discord"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Presence  PresenceConfig  `yaml:"presence"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

type HTTPConfig struct {
	Address      string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowOrigins []string `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS"`
}

type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN"`
	// DryRun swaps the discord session for the in-memory platform.
	DryRun bool `yaml:"dry_run" env:"DISCORD_DRY_RUN" env-default:"false"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"tempvoice"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"tempvoice:"`
}

type SchedulerConfig struct {
	IdleCron     string        `yaml:"idle_cron" env-default:"*/5 * * * *"`
	HourlyCron   string        `yaml:"hourly_cron" env-default:"@hourly"`
	StartupDelay time.Duration `yaml:"startup_delay" env-default:"15s"`
}

type PresenceConfig struct {
	TTL time.Duration `yaml:"ttl" env-default:"15s"`
}

// DefaultsConfig overrides the built-in settings for guilds that never stored
// their own. Zero values keep the built-in value.
type DefaultsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxShards        int           `yaml:"max_shards"`
	ShardPrefix      string        `yaml:"shard_prefix"`
	NamePattern      string        `yaml:"name_pattern"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracePeriod      time.Duration `yaml:"grace_period"`
	CreateCooldown   time.Duration `yaml:"create_cooldown"`
	MaxRoomsPerGuild int           `yaml:"max_rooms_per_guild"`
	MaxRoomsPerUser  int           `yaml:"max_rooms_per_user"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Presence.TTL <= 0 {
		c.Presence.TTL = 15 * time.Second
	}
}

// GuildDefaults builds the settings of a guild with nothing stored.
func (d DefaultsConfig) GuildDefaults(guildID string) *domain.GuildSettings {
	s := domain.DefaultSettings(guildID)
	s.Enabled = d.Enabled
	if d.MaxShards > 0 {
		s.MaxShards = d.MaxShards
	}
	if d.ShardPrefix != "" {
		s.ShardPrefix = d.ShardPrefix
	}
	if d.NamePattern != "" {
		s.NamePattern = d.NamePattern
	}
	if d.IdleTimeout > 0 {
		s.IdleTimeout = d.IdleTimeout
	}
	if d.GracePeriod > 0 {
		s.GracePeriod = d.GracePeriod
	}
	if d.CreateCooldown > 0 {
		s.CreateCooldown = d.CreateCooldown
	}
	if d.MaxRoomsPerGuild > 0 {
		s.MaxRoomsPerGuild = d.MaxRoomsPerGuild
	}
	if d.MaxRoomsPerUser > 0 {
		s.MaxRoomsPerUser = d.MaxRoomsPerUser
	}
	return s
}
