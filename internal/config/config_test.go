package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 300, c.IdempTTLSecs)
	assert.Equal(t, time.Minute, c.RulesCacheTTL)
	assert.Equal(t, 6, c.Rules.MinMembershipMonths)
	assert.Equal(t, 2, c.Rules.MaxActiveLoans)
	assert.True(t, c.Rules.LoanToSavingsMultiplier.Equal(decimal.NewFromInt(3)))
	assert.NoError(t, c.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MYSQL_DB", "society")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("RULES_MAX_ACTIVE_LOANS", "3")
	t.Setenv("RULES_GUARANTOR_THRESHOLD", "750000.50")
	t.Setenv("RULES_CACHE_TTL", "5m")

	c, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, "society", c.MySQLDB)
	assert.Equal(t, 4, c.RedisDB)
	assert.Equal(t, 3, c.Rules.MaxActiveLoans)
	assert.True(t, c.Rules.GuarantorThreshold.Equal(decimal.RequireFromString("750000.50")))
	assert.Equal(t, 5*time.Minute, c.RulesCacheTTL)
}

func TestLoad_BadRuleDefault(t *testing.T) {
	t.Setenv("RULES_MAX_ACTIVE_LOANS", "many")

	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c, err := load(viper.New())
	require.NoError(t, err)

	bad := *c
	bad.MySQLHost = ""
	assert.Error(t, bad.Validate())

	bad = *c
	bad.MySQLPort = "not-a-port"
	assert.Error(t, bad.Validate())

	bad = *c
	bad.AppPort = ""
	assert.Error(t, bad.Validate())

	bad = *c
	bad.Rules.MaxActiveLoans = 0
	assert.Error(t, bad.Validate())
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{MySQLUser: "u", MySQLPass: "p", MySQLHost: "db", MySQLPort: "3306", MySQLDB: "coop"}
	assert.Equal(t, "u:p@tcp(db:3306)/coop?parseTime=true&loc=UTC&charset=utf8mb4,utf8", c.MySQLDSN())
}
