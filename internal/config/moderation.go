package config

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ModerationConfig caps how many moderation actions a single account may
// perform inside one rolling window.
type ModerationConfig struct {
	MaxActions    int           `mapstructure:"maxActions"`
	Window        time.Duration `mapstructure:"window"`
	RedisKeyspace string        `mapstructure:"redisKeyspace"`
}

func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		MaxActions:    100,
		Window:        time.Hour,
		RedisKeyspace: "moderation",
	}
}

// ModerationConfigHolder serves the current moderation policy and hot-reloads
// it when the config file changes on disk.
type ModerationConfigHolder struct {
	current atomic.Value // holds ModerationConfig
}

func NewModerationConfigHolder(log *zap.Logger) (*ModerationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("moderation")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fablehold/config")
	v.AddConfigPath("/etc/fablehold")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FABLEHOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultModerationConfig()
	v.SetDefault("moderation.maxActions", defaults.MaxActions)
	v.SetDefault("moderation.window", defaults.Window)
	v.SetDefault("moderation.redisKeyspace", defaults.RedisKeyspace)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &ModerationConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Warn("moderation config reload failed",
				zap.String("file", e.Name),
				zap.Error(err),
			)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *ModerationConfigHolder) reload(v *viper.Viper) error {
	var cfg ModerationConfig
	if err := v.UnmarshalKey("moderation", &cfg); err != nil {
		return err
	}
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = DefaultModerationConfig().MaxActions
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultModerationConfig().Window
	}
	if strings.TrimSpace(cfg.RedisKeyspace) == "" {
		cfg.RedisKeyspace = DefaultModerationConfig().RedisKeyspace
	}
	h.current.Store(cfg)
	return nil
}

// NewStaticModerationConfigHolder pins the holder to cfg, without file
// watching. Useful where hot reload is not wanted.
func NewStaticModerationConfigHolder(cfg ModerationConfig) *ModerationConfigHolder {
	h := &ModerationConfigHolder{}
	h.current.Store(cfg)
	return h
}

func (h *ModerationConfigHolder) Current() ModerationConfig {
	if v, ok := h.current.Load().(ModerationConfig); ok {
		return v
	}
	return DefaultModerationConfig()
}
