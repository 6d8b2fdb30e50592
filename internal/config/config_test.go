package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_MODE", "dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 60, cfg.JWT.AccessTokenMins)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.Cron.Enabled)
	assert.Equal(t, "*", cfg.GetAllowedOrigins())
}

func TestLoad_ModePrefixes(t *testing.T) {
	t.Setenv("APP_MODE", "prod")
	t.Setenv("PROD_DB_DRIVER", "postgres")
	t.Setenv("PROD_DB_HOST", "db.internal")
	t.Setenv("PROD_JWT_SECRET", "s3cret")
	t.Setenv("DEV_DB_HOST", "ignored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad mode", map[string]string{"APP_MODE": "staging"}},
		{"bad driver", map[string]string{"DEV_DB_DRIVER": "oracle"}},
		{"bad timeout", map[string]string{"DB_QUERY_TIMEOUT": "soon"}},
		{"bad redis db", map[string]string{"REDIS_DB": "x"}},
		{"prod default secret", map[string]string{"APP_MODE": "prod"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_MODE", "dev")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestBuildDSN(t *testing.T) {
	d := DatabaseConfig{User: "app", Password: "pw", Host: "h", Port: "3306", DBName: "rc"}
	assert.Equal(t, "app:pw@tcp(h:3306)/rc?charset=utf8mb4&parseTime=True&loc=UTC", buildDSN(d))

	d.Port = "5432"
	assert.Contains(t, buildPostgresDSN(d), "dbname=rc")
	assert.Contains(t, buildPostgresDSN(d), "TimeZone=UTC")
}

func TestBuildDialector_UnknownDriver(t *testing.T) {
	_, err := buildDialector(DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
