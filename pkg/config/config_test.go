package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.True(t, cfg.Sales.TaxRate.Equal(decimal.RequireFromString("0.19")))
	assert.Equal(t, 24*time.Hour, cfg.Tenant.JoinCooldown)
	assert.Equal(t, "V", cfg.Sales.SalePrefix)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_LeeVariables(t *testing.T) {
	v := viper.New()
	v.Set("SALES_TAX_RATE", "0.05")
	v.Set("DB_PORT", "6543")
	v.Set("TENANT_JOIN_COOLDOWN", "2h")
	v.Set("DB_PASSWORD", "p@ss:word")
	v.Set("DB_MAX_CONN_LIFETIME", "20m")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.Sales.TaxRate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 2*time.Hour, cfg.Tenant.JoinCooldown)
	assert.Contains(t, cfg.DB.ConnectionString(), "p%40ss%3Aword")
	assert.Equal(t, 20*time.Minute, cfg.DB.MaxConnLifetime)
	assert.Equal(t, 5*time.Second, cfg.DB.ConnectTimeout)
}

func TestFromViper_TasaInvalida(t *testing.T) {
	v := viper.New()
	v.Set("SALES_TAX_RATE", "diecinueve")

	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err, "sin JWT_SECRET no debe validar")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWT.Secret = "secreto"
	assert.NoError(t, cfg.Validate())

	cfg.Sales.TaxRate = decimal.NewFromInt(1)
	assert.Error(t, cfg.Validate())
}
