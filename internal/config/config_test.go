package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.S3.PresignTTL)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFailsFast(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"MONGO_URI": "mongodb://localhost"},
			wantErr: "JWT_SECRET_KEY",
		},
		{
			name:    "mongo without uri",
			env:     map[string]string{"JWT_SECRET_KEY": "s"},
			wantErr: "MONGO_URI",
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "postgres"},
			wantErr: "DB_DSN",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"JWT_SECRET_KEY": "s", "STORE_DRIVER": "sqlite"},
			wantErr: "unknown STORE_DRIVER",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMemoryDriverNeedsOnlySecret(t *testing.T) {
	cfg := Config{StoreDriver: DriverMemory, JWTSecret: "s", TokenTTL: time.Hour}
	assert.NoError(t, cfg.Validate())
}
