package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/myxmaster/zeus/db"
	"github.com/myxmaster/zeus/logger"
	"github.com/myxmaster/zeus/utils"
)

type config struct {
	Env        *AppConfig
	db         *gorm.DB
	cache      map[string]string
	cacheMutex sync.Mutex
}

func NewConfig(env *AppConfig, gormDB *gorm.DB) (*config, error) {
	cfg := &config{
		Env:   env,
		db:    gormDB,
		cache: map[string]string{},
	}

	// default to the permissive attestation level on first start
	err := cfg.SetIgnore(AttestationLevelKey, "2")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *config) Get(key string) (string, error) {
	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()

	if cachedValue, ok := cfg.cache[key]; ok {
		return cachedValue, nil
	}

	var userConfig db.UserConfig
	err := cfg.db.Where(&db.UserConfig{Key: key}).Limit(1).Find(&userConfig).Error
	if err != nil {
		return "", fmt.Errorf("failed to get configuration value: %w", err)
	}

	cfg.cache[key] = userConfig.Value
	return userConfig.Value, nil
}

func (cfg *config) set(key string, value string, clauses clause.OnConflict) error {
	userConfig := db.UserConfig{Key: key, Value: value}
	result := cfg.db.Clauses(clauses).Create(&userConfig)
	if result.Error != nil {
		return fmt.Errorf("failed to save key to config: %w", result.Error)
	}

	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()
	delete(cfg.cache, key)

	return nil
}

func (cfg *config) SetIgnore(key string, value string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}
	err := cfg.set(key, value, clauses)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with ignore")
		return err
	}
	return nil
}

func (cfg *config) SetUpdate(key string, value string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}
	err := cfg.set(key, value, clauses)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with update")
		return err
	}
	return nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) GetJWTSecret() (string, error) {
	jwtSecret, err := cfg.Get(JWTSecretKey)
	if err != nil {
		return "", err
	}
	if jwtSecret == "" {
		jwtSecret, err = randomHex(32)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to generate JWT secret")
			return "", err
		}
		err = cfg.SetUpdate(JWTSecretKey, jwtSecret)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to save JWT secret")
			return "", err
		}
		logger.Logger.Info().Msg("Generated new JWT secret")
	}
	return jwtSecret, nil
}

func (cfg *config) GetRelayUrls() []string {
	relays := strings.Split(cfg.Env.Relays, ",")
	for i := range relays {
		relays[i] = strings.TrimSpace(relays[i])
	}
	return utils.Filter(relays, func(relay string) bool {
		return relay != ""
	})
}

func (cfg *config) GetDefaultWorkDir() string {
	if cfg.Env.Workdir != "" {
		return cfg.Env.Workdir
	}
	return filepath.Join(xdg.DataHome, "zeus")
}

func (cfg *config) GetLightningAddress() (string, string) {
	handle, _ := cfg.Get(LightningAddressKey)
	domain, _ := cfg.Get(LightningDomainKey)
	if domain == "" {
		domain = cfg.Env.LightningDomain
	}
	return handle, domain
}

func (cfg *config) SetLightningAddress(handle string, domain string) error {
	if domain == "" {
		domain = cfg.Env.LightningDomain
	}
	if err := cfg.SetUpdate(LightningAddressKey, handle); err != nil {
		return err
	}
	if err := cfg.SetUpdate(LightningDomainKey, domain); err != nil {
		return err
	}
	return cfg.SetUpdate(AddressActivatedKey, "true")
}

func (cfg *config) AddressActivated() bool {
	activated, _ := cfg.Get(AddressActivatedKey)
	return activated == "true"
}

func (cfg *config) GetAttestationLevel() int {
	value, err := cfg.Get(AttestationLevelKey)
	if err != nil || value == "" {
		return 2
	}
	level, err := strconv.Atoi(value)
	if err != nil {
		logger.Logger.Warn().Str("value", value).Msg("Invalid attestation level in config")
		return 2
	}
	return level
}

func (cfg *config) SetAttestationLevel(level int) error {
	if level < 0 {
		return fmt.Errorf("invalid attestation level: %d", level)
	}
	return cfg.SetUpdate(AttestationLevelKey, strconv.Itoa(level))
}

func (cfg *config) AutomaticallyAccept() bool {
	value, _ := cfg.Get(AutomaticallyAcceptKey)
	// enabled unless explicitly turned off
	return value != "false"
}

func (cfg *config) AutomaticallyRequestChannels() bool {
	value, _ := cfg.Get(RequestChannelsKey)
	return value == "true"
}

func (cfg *config) RouteHints() bool {
	value, _ := cfg.Get(RouteHintsKey)
	return value == "true"
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
