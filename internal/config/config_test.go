package config

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  port: "9090"
temporal:
  task_queue: custom-queue
cmdb:
  base_url: http://paas.example.com
  app_code: dispatch
  app_secret: file-secret
  page_limit: 200
job:
  host: https://job.example.com
nodeman:
  host: https://nodeman.example.com
callback:
  inner_host: http://dispatch.internal/
  timeout: 30m
infisical:
  base_url: https://infisical.example.com
  service_token: st.token
  project: dispatch
  environment: prod
  secrets:
    - path: /
      secret_name: callback_key
      env_name: CALLBACK_KEY
`

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

	cfg := defaultConfig()
	require.NoError(t, loadFromFile(path, cfg))

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "custom-queue", cfg.Temporal.TaskQueue)
	assert.Equal(t, "localhost:7233", cfg.Temporal.Address)
	assert.Equal(t, "http://paas.example.com", cfg.CMDB.BaseURL)
	assert.Equal(t, 200, cfg.CMDB.PageLimit)
	assert.Equal(t, "0", cfg.CMDB.DefaultSupplierAccount)
	assert.Equal(t, "root", cfg.Job.AccountAlias)
	assert.Equal(t, 30*time.Minute, cfg.Callback.Timeout)
	require.Len(t, cfg.Infisical.Secrets, 1)
	assert.Equal(t, "CALLBACK_KEY", cfg.Infisical.Secrets[0].EnvName)
	assert.True(t, cfg.Infisical.Enabled())
}

func TestLoadFromFileMissing(t *testing.T) {
	err := loadFromFile(filepath.Join(t.TempDir(), "missing.yaml"), defaultConfig())
	assert.True(t, os.IsNotExist(err))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CMDB_BASE_URL", "http://env.example.com")
	t.Setenv("CMDB_PAGE_LIMIT", "100")
	t.Setenv("CALLBACK_KEY", "env-key")
	t.Setenv("CALLBACK_TIMEOUT", "5m")
	t.Setenv("JOB_SCRIPT_TIMEOUT", "not-a-number")

	cfg := defaultConfig()
	loadFromEnv(cfg)

	assert.Equal(t, "http://env.example.com", cfg.CMDB.BaseURL)
	assert.Equal(t, 100, cfg.CMDB.PageLimit)
	assert.Equal(t, "env-key", cfg.Callback.Key)
	assert.Equal(t, 5*time.Minute, cfg.Callback.Timeout)
	assert.Equal(t, 1000, cfg.Job.ScriptTimeout)
}

func TestApplySecrets(t *testing.T) {
	cfg := defaultConfig()
	cfg.CMDB.AppSecret = "from-file"

	cfg.ApplySecrets(map[string]string{
		SecretCallbackKey: "from-infisical",
		"UNRELATED":       "ignored",
	})

	assert.Equal(t, "from-infisical", cfg.Callback.Key)
	assert.Equal(t, "from-file", cfg.CMDB.AppSecret)
}

func validWorkerConfig() *Config {
	cfg := defaultConfig()
	cfg.CMDB.BaseURL = "http://paas.example.com"
	cfg.CMDB.AppCode = "dispatch"
	cfg.CMDB.AppSecret = "secret"
	cfg.Job.Host = "https://job.example.com"
	cfg.Callback.InnerHost = "http://dispatch.internal/"
	cfg.Callback.Key = "key"
	return cfg
}

func TestValidateWorker(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing base url", func(c *Config) { c.CMDB.BaseURL = "" }, true},
		{"missing app code", func(c *Config) { c.CMDB.AppCode = "" }, true},
		{"missing job host", func(c *Config) { c.Job.Host = "" }, true},
		{"callback host without slash", func(c *Config) { c.Callback.InnerHost = "http://dispatch.internal" }, true},
		{"missing callback key", func(c *Config) { c.Callback.Key = "" }, true},
		{"zero page limit", func(c *Config) { c.CMDB.PageLimit = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validWorkerConfig()
			tt.mutate(cfg)
			err := cfg.ValidateWorker()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWorker() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPI(t *testing.T) {
	cfg := validWorkerConfig()
	assert.Error(t, cfg.ValidateAPI())

	cfg.Auth.APIToken = "token"
	assert.NoError(t, cfg.ValidateAPI())
}

type stubSecretManager struct {
	secrets map[string]string
	err     error
	calls   int
}

func (s *stubSecretManager) FetchSecretsByMapping(context.Context, string, string, []domain.SecretMapping) (map[string]string, error) {
	s.calls++
	return s.secrets, s.err
}

func TestLoadSecrets(t *testing.T) {
	cfg := defaultConfig()
	manager := &stubSecretManager{secrets: map[string]string{SecretCallbackKey: "from-infisical"}}

	require.NoError(t, cfg.LoadSecrets(context.Background(), manager))
	assert.Equal(t, 0, manager.calls)

	cfg.Infisical = InfisicalConfig{
		BaseURL:      "https://infisical.example.com",
		ServiceToken: "st.token",
		Project:      "dispatch",
		Environment:  "prod",
		Secrets:      []domain.SecretMapping{{Path: "/", SecretName: "callback_key", EnvName: SecretCallbackKey}},
	}
	require.NoError(t, cfg.LoadSecrets(context.Background(), manager))
	assert.Equal(t, "from-infisical", cfg.Callback.Key)

	manager.err = errors.New("forbidden")
	assert.Error(t, cfg.LoadSecrets(context.Background(), manager))
}
