package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	t.Setenv("BOT_ADMIN_IDS", "")

	cfg := FromEnv()

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "db", cfg.Bot.StatsSource)
	assert.Equal(t, 10*time.Second, cfg.Bot.StatsTimeout)
	assert.Empty(t, cfg.Bot.AdminIDs)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvParsesLists(t *testing.T) {
	t.Setenv("BOT_ADMIN_USERNAMES", " alice, bob ,,")
	t.Setenv("BOT_ADMIN_IDS", "42,abc,7")
	t.Setenv("SITE_URL", "https://example.com/")

	cfg := FromEnv()

	assert.Equal(t, []string{"alice", "bob"}, cfg.Bot.AdminUsernames)
	assert.Equal(t, []int64{42, 7}, cfg.Bot.AdminIDs)
	assert.Equal(t, "https://example.com", cfg.App.SiteURL)
}

func TestValidateProductionRequiresSecrets(t *testing.T) {
	cfg := FromEnv()
	cfg.App.Env = "production"
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestValidateRejectsUnknownDatabase(t *testing.T) {
	cfg := FromEnv()
	cfg.Database.Type = "mysql"

	assert.Error(t, cfg.Validate())
}

func TestValidateBot(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "missing bot token",
			mutate:  func(c *Config) { c.Bot.Token = "" },
			wantErr: true,
		},
		{
			name: "db source needs only token",
			mutate: func(c *Config) {
				c.Bot.Token = "123:abc"
				c.Bot.StatsSource = "db"
			},
		},
		{
			name: "api source without api token",
			mutate: func(c *Config) {
				c.Bot.Token = "123:abc"
				c.Bot.StatsSource = "api"
				c.App.SiteURL = "https://example.com"
				c.Bot.APIToken = ""
			},
			wantErr: true,
		},
		{
			name: "api source without site url",
			mutate: func(c *Config) {
				c.Bot.Token = "123:abc"
				c.Bot.StatsSource = "api"
				c.App.SiteURL = ""
				c.Bot.APIToken = "token"
			},
			wantErr: true,
		},
		{
			name: "unknown source",
			mutate: func(c *Config) {
				c.Bot.Token = "123:abc"
				c.Bot.StatsSource = "ftp"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			err := cfg.ValidateBot()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := FromEnv()
	cfg.App.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestConfigWarningsGoThroughZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	cfg := FromEnv()
	cfg.Bot.Token = "123:abc"
	cfg.Bot.StatsSource = "db"
	cfg.Bot.AdminUsernames = nil
	cfg.Bot.AdminIDs = nil
	cfg.JWT.Secret = "top-secret-value"
	require.NoError(t, cfg.ValidateBot())
	assert.Equal(t, 1, logs.FilterMessage("BOT_ADMIN_USERNAMES and BOT_ADMIN_IDS are empty, admin commands are disabled").Len())

	cfg.LogConfig(zap.L())
	entries := logs.FilterMessage("application configuration").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, cfg.App.Env, fields["env"])
	assert.Equal(t, "db", fields["bot_stats_source"])
	for _, v := range fields {
		assert.NotEqual(t, "top-secret-value", v)
	}
}
