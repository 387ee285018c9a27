package config

import (
	"testing"
	"time"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/stretchr/testify/assert"
)

func configured() Config {
	cfg := Default()
	cfg.AccessKey = "AKIAEXAMPLE123456789"
	cfg.SecretKey = "abc123secretabc123secretabc123secret"
	cfg.PartnerTag = "savingsgurucc-20"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "CA", cfg.Marketplace)
	assert.Equal(t, time.Second, cfg.APIRateLimitDelay)
	assert.Equal(t, 120, cfg.TargetDealCount)
	assert.Equal(t, 24*time.Hour, cfg.FreshnessWindow)
	assert.Equal(t, 10, cfg.MinDiscountPercent)
	assert.Equal(t, 40, cfg.FeaturedThreshold)
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		wantErr error
		name    string
	}{
		{
			name:   "valid credentials",
			mutate: func(*Config) {},
		},
		{
			name:    "empty access key",
			mutate:  func(c *Config) { c.AccessKey = "" },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "whitespace secret key",
			mutate:  func(c *Config) { c.SecretKey = "   " },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "placeholder access key",
			mutate:  func(c *Config) { c.AccessKey = "your-access-key" },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "dummy partner tag",
			mutate:  func(c *Config) { c.PartnerTag = "dummy_partner_tag" },
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configured()
			tt.mutate(&cfg)
			err := cfg.ValidateCredentials()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("unknown marketplace", func(t *testing.T) {
		cfg := configured()
		cfg.Marketplace = "ZZ"
		assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)
	})

	t.Run("inverted scraper delays", func(t *testing.T) {
		cfg := configured()
		cfg.ScraperDelayMin = 5 * time.Second
		cfg.ScraperDelayMax = time.Second
		assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, configured().Validate())
	})
}
