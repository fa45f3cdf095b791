package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string          `mapstructure:"mode"`
	Port         int             `mapstructure:"port"`
	StaticPath   string          `mapstructure:"static_path"`
	Secret       string          `mapstructure:"secret"`
	LogLevel     string          `mapstructure:"log_level"`
	DefaultRoom  string          `mapstructure:"default_room"`
	ReadLimit    int64           `mapstructure:"read_limit"`
	PingPeriod   time.Duration   `mapstructure:"ping_period"`
	PongWait     time.Duration   `mapstructure:"pong_wait"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	SendBuffer   int             `mapstructure:"send_buffer"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	Engine       EngineConfig    `mapstructure:"engine"`
}

type RateLimitConfig struct {
	Messages int           `mapstructure:"messages"`
	Interval time.Duration `mapstructure:"interval"`
}

type EngineConfig struct {
	Kind        string        `mapstructure:"kind"`
	ListenIP    string        `mapstructure:"listen_ip"`
	AnnouncedIP string        `mapstructure:"announced_ip"`
	RTCMinPort  uint16        `mapstructure:"rtc_min_port"`
	RTCMaxPort  uint16        `mapstructure:"rtc_max_port"`
	TCPPort     int           `mapstructure:"tcp_port"`
	FatalGrace  time.Duration `mapstructure:"fatal_grace"`
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "mediagate-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_room", "lobby")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("rate_limit.messages", 50)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("engine.kind", "pion")
	v.SetDefault("engine.listen_ip", "0.0.0.0")
	v.SetDefault("engine.announced_ip", "")
	v.SetDefault("engine.rtc_min_port", 40000)
	v.SetDefault("engine.rtc_max_port", 40100)
	v.SetDefault("engine.tcp_port", 0)
	v.SetDefault("engine.fatal_grace", "2s")
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MEDIAGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Engine.AnnouncedIP == "" {
		cfg.Engine.AnnouncedIP = "127.0.0.1"
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Engine: %s | Announced: %s\n", cfg.Mode, cfg.Port, cfg.Engine.Kind, cfg.Engine.AnnouncedIP)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine.Kind {
	case "pion", "memory":
	default:
		return fmt.Errorf("config: unknown engine.kind %q", c.Engine.Kind)
	}
	if c.Engine.RTCMinPort > c.Engine.RTCMaxPort {
		return fmt.Errorf("config: engine.rtc_min_port %d above rtc_max_port %d", c.Engine.RTCMinPort, c.Engine.RTCMaxPort)
	}
	if c.DefaultRoom == "" {
		return fmt.Errorf("config: default_room is empty")
	}
	return nil
}
