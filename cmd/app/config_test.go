package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeEnvFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv hides values from the surrounding environment. Empty variables count as unset.
func clearEnv(t *testing.T) {
	for _, key := range required {
		t.Setenv(key, "")
	}
	for key := range defaults {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	path := writeEnvFile(t, `
PORT=8080
ENVIRONMENT=development
VERSION=1.0.0
TRUSTED_ORIGINS="http://localhost:3000,http://localhost:3001"
POSTGRES_HOST=localhost
POSTGRES_PORT=5432
POSTGRES_USER=testuser
POSTGRES_PASSWORD=testpassword
POSTGRES_DB=testdb
JWT_SECRET=`+testSecret+`
TOKEN_TTL=2h
MAX_UPLOAD_BYTES=2048
RECONCILE_INTERVAL=1h
MAIL_HOST=smtp.example.com
MAIL_PORT=2525
MAIL_USER=testuser@example.com
MAIL_PASSWORD=testpassword
MAIL_SENDER=sender@example.com
RABBITMQ_HOST=rabbitmq.example.com
RABBITMQ_USER=testuser
RABBITMQ_PASSWORD=testpassword
`)

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Port)
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, config.TrustedOrigins)
	assert.Equal(t, "localhost", config.DBHost)
	assert.Equal(t, "5432", config.DBPort)
	assert.Equal(t, "testuser", config.DBUser)
	assert.Equal(t, "testpassword", config.DBPassword)
	assert.Equal(t, "testdb", config.DBName)
	assert.Equal(t, testSecret, config.JWTSecret)
	assert.Equal(t, 2*time.Hour, config.TokenTTL)
	assert.Equal(t, int64(2048), config.MaxUploadBytes)
	assert.Equal(t, time.Hour, config.ReconcileInterval)
	assert.Equal(t, "smtp.example.com", config.MailHost)
	assert.Equal(t, 2525, config.MailPort)
	assert.Equal(t, "testuser@example.com", config.MailUser)
	assert.Equal(t, "testpassword", config.MailPassword)
	assert.Equal(t, "sender@example.com", config.MailSender)
	assert.Equal(t, "rabbitmq.example.com", config.MQHost)
	assert.Equal(t, "testuser", config.MQUser)
	assert.Equal(t, "testpassword", config.MQPassword)
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "showcase")
	t.Setenv("JWT_SECRET", testSecret)

	config, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":4000", config.Port)
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, []string{"http://localhost:3000"}, config.TrustedOrigins)
	assert.Equal(t, "uploads", config.UploadDir)
	assert.Equal(t, "", config.PublicBaseURL)
	assert.Equal(t, int64(10<<20), config.MaxUploadBytes)
	assert.Equal(t, 24*time.Hour, config.TokenTTL)
	assert.Equal(t, "showcase", config.JWTIssuer)
	assert.True(t, config.AutoMigrate)
	assert.True(t, config.RateLimitEnabled)
	assert.Equal(t, float64(10), config.RateLimitRPS)
	assert.Equal(t, 20, config.RateLimitBurst)
	assert.Equal(t, time.Duration(0), config.ReconcileInterval)
	assert.Equal(t, 10*time.Minute, config.ReconcileGrace)
	assert.Equal(t, 15*time.Minute, config.DBMaxIdleTime)
	assert.Empty(t, config.MQHost)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeEnvFile(t, `
POSTGRES_HOST=filehost
POSTGRES_PORT=5432
POSTGRES_USER=app
POSTGRES_PASSWORD=secret
POSTGRES_DB=showcase
JWT_SECRET=`+testSecret+`
UPLOAD_DIR=/srv/file
`)
	t.Setenv("POSTGRES_HOST", "envhost")
	t.Setenv("UPLOAD_DIR", "/srv/env")

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "envhost", config.DBHost)
	assert.Equal(t, "/srv/env", config.UploadDir)
}

func TestLoadConfigValidation(t *testing.T) {
	base := `
POSTGRES_HOST=localhost
POSTGRES_PORT=5432
POSTGRES_USER=app
POSTGRES_PASSWORD=secret
POSTGRES_DB=showcase
`

	tests := []struct {
		name    string
		content string
		err     string
	}{
		{
			name:    "Missing Required",
			content: "POSTGRES_HOST=localhost\n",
			err:     "missing required configuration: POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DB, JWT_SECRET",
		},
		{
			name:    "Short Secret",
			content: base + "JWT_SECRET=short\n",
			err:     "JWT_SECRET must be at least 32 bytes long",
		},
		{
			name:    "Upload Limit",
			content: base + "JWT_SECRET=" + testSecret + "\nMAX_UPLOAD_BYTES=0\n",
			err:     "MAX_UPLOAD_BYTES must be greater than zero",
		},
		{
			name:    "Admin Without Password",
			content: base + "JWT_SECRET=" + testSecret + "\nADMIN_USERNAME=root\n",
			err:     "ADMIN_PASSWORD is required when ADMIN_USERNAME is set",
		},
		{
			name:    "Production Without TLS",
			content: base + "JWT_SECRET=" + testSecret + "\nENVIRONMENT=production\n",
			err:     "TLS_CERT_FILE and TLS_KEY_FILE are required in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := loadConfig(writeEnvFile(t, tt.content))
			assert.EqualError(t, err, tt.err)
		})
	}
}
