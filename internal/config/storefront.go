package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StorefrontConfig carries tunables that operators change without a restart.
type StorefrontConfig struct {
	CatalogDefaultLimit  int `mapstructure:"catalogDefaultLimit"`
	CatalogMaxLimit      int `mapstructure:"catalogMaxLimit"`
	AdminDefaultLimit    int `mapstructure:"adminDefaultLimit"`
	RecentOrdersDays     int `mapstructure:"recentOrdersDays"`
	ActiveUsersDays      int `mapstructure:"activeUsersDays"`
	PopularSubjectsLimit int `mapstructure:"popularSubjectsLimit"`
	MonthlyRevenueMonths int `mapstructure:"monthlyRevenueMonths"`
}

func DefaultStorefrontConfig() StorefrontConfig {
	return StorefrontConfig{
		CatalogDefaultLimit:  12,
		CatalogMaxLimit:      50,
		AdminDefaultLimit:    20,
		RecentOrdersDays:     7,
		ActiveUsersDays:      30,
		PopularSubjectsLimit: 5,
		MonthlyRevenueMonths: 6,
	}
}

type StorefrontHolder struct {
	current atomic.Value // holds StorefrontConfig
}

// NewStaticStorefront returns a holder that never reloads.
func NewStaticStorefront(cfg StorefrontConfig) *StorefrontHolder {
	holder := &StorefrontHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewStorefrontHolder(cfg Config, log *zap.Logger) (*StorefrontHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.StorefrontConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/notemart")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NOTEMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStorefrontConfig()
	v.SetDefault("storefront.catalogDefaultLimit", defaults.CatalogDefaultLimit)
	v.SetDefault("storefront.catalogMaxLimit", defaults.CatalogMaxLimit)
	v.SetDefault("storefront.adminDefaultLimit", defaults.AdminDefaultLimit)
	v.SetDefault("storefront.recentOrdersDays", defaults.RecentOrdersDays)
	v.SetDefault("storefront.activeUsersDays", defaults.ActiveUsersDays)
	v.SetDefault("storefront.popularSubjectsLimit", defaults.PopularSubjectsLimit)
	v.SetDefault("storefront.monthlyRevenueMonths", defaults.MonthlyRevenueMonths)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	sf, err := decodeStorefront(v)
	if err != nil {
		return nil, err
	}
	if err := validateStorefrontConfig(sf); err != nil {
		return nil, err
	}

	holder := NewStaticStorefront(sf)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeStorefront(v)
		if err != nil {
			log.Warn("storefront config reload failed", zap.Error(err))
			return
		}
		if err := validateStorefrontConfig(updated); err != nil {
			log.Warn("invalid storefront config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("storefront config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *StorefrontHolder) Get() StorefrontConfig {
	if h == nil {
		return DefaultStorefrontConfig()
	}
	cfg, ok := h.current.Load().(StorefrontConfig)
	if !ok {
		return DefaultStorefrontConfig()
	}
	return cfg
}

// decodeStorefront goes through AllSettings so that file values and
// per-key defaults are merged.
func decodeStorefront(v *viper.Viper) (StorefrontConfig, error) {
	var wrapper struct {
		Storefront StorefrontConfig `mapstructure:"storefront"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return StorefrontConfig{}, err
	}
	return wrapper.Storefront, nil
}

func validateStorefrontConfig(cfg StorefrontConfig) error {
	if cfg.CatalogDefaultLimit <= 0 || cfg.CatalogMaxLimit <= 0 {
		return errors.New("storefront catalog limits must be positive")
	}
	if cfg.CatalogDefaultLimit > cfg.CatalogMaxLimit {
		return errors.New("storefront catalogDefaultLimit exceeds catalogMaxLimit")
	}
	if cfg.RecentOrdersDays <= 0 || cfg.ActiveUsersDays <= 0 {
		return errors.New("storefront dashboard windows must be positive")
	}
	if cfg.PopularSubjectsLimit <= 0 || cfg.MonthlyRevenueMonths <= 0 {
		return errors.New("storefront dashboard limits must be positive")
	}
	return nil
}
