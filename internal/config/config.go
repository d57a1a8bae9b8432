package config

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Secret names that can be injected from Infisical, see ApplySecrets
const (
	SecretCallbackKey   = "CALLBACK_KEY"
	SecretCMDBAppSecret = "CMDB_APP_SECRET"
	SecretAPIToken      = "API_TOKEN"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Auth      AuthConfig      `yaml:"auth"`
	CMDB      CMDBConfig      `yaml:"cmdb"`
	Job       JobConfig       `yaml:"job"`
	Nodeman   NodemanConfig   `yaml:"nodeman"`
	Callback  CallbackConfig  `yaml:"callback"`
	Infisical InfisicalConfig `yaml:"infisical"`
	Discord   DiscordConfig   `yaml:"discord"`
	OTEL      OTELConfig      `yaml:"otel"`
	Logger    LoggerConfig    `yaml:"logger"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	// MetricsPort serves /metrics from the worker
	MetricsPort string `yaml:"metrics_port"`
}

type TemporalConfig struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

type AuthConfig struct {
	APIToken string `yaml:"api_token"`
}

// CMDBConfig points at the ESB gateway in front of CMDB
type CMDBConfig struct {
	BaseURL                string `yaml:"base_url"`
	AppCode                string `yaml:"app_code"`
	AppSecret              string `yaml:"app_secret"`
	SystemUsername         string `yaml:"system_username"`
	DefaultSupplierAccount string `yaml:"default_supplier_account"`
	PageLimit              int    `yaml:"page_limit"`
}

// JobConfig holds the job platform web host and script defaults. Jobs are
// sent through the same ESB gateway as CMDB requests.
type JobConfig struct {
	Host          string `yaml:"host"`
	AccountAlias  string `yaml:"account_alias"`
	ScriptTimeout int    `yaml:"script_timeout"`
}

type NodemanConfig struct {
	Host string `yaml:"host"`
}

// CallbackConfig configures node callbacks from the job platform.
// InnerHost must end with a slash.
type CallbackConfig struct {
	InnerHost string        `yaml:"inner_host"`
	Key       string        `yaml:"key"`
	Timeout   time.Duration `yaml:"timeout"`
}

type InfisicalConfig struct {
	BaseURL      string                 `yaml:"base_url"`
	ServiceToken string                 `yaml:"service_token"`
	Project      string                 `yaml:"project"`
	Environment  string                 `yaml:"environment"`
	Secrets      []domain.SecretMapping `yaml:"secrets"`
}

// Enabled reports whether secrets should be fetched from Infisical
func (c InfisicalConfig) Enabled() bool {
	return c.BaseURL != "" && c.ServiceToken != "" && len(c.Secrets) > 0
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type OTELConfig struct {
	CollectorURL string `yaml:"collector_url"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "localhost",
			Port:        "8080",
			MetricsPort: "9091",
		},
		Temporal: TemporalConfig{
			Address:   "localhost:7233",
			Namespace: "default",
			TaskQueue: "job-dispatch-task-queue",
		},
		CMDB: CMDBConfig{
			SystemUsername:         "admin",
			DefaultSupplierAccount: "0",
			PageLimit:              500,
		},
		Job: JobConfig{
			AccountAlias:  "root",
			ScriptTimeout: 1000,
		},
		Callback: CallbackConfig{
			Timeout: time.Hour,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load() (*Config, error) {
	config := defaultConfig()

	// Load from file
	if err := loadFromFile("config.yaml", config); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Load from .env
	if err := godotenv.Overload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	// Load from environment variables
	loadFromEnv(config)

	// Load from flags
	loadFromFlags(config)

	return config, nil
}

func loadFromFile(filePath string, config *Config) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	fileConfig := &Config{}
	if err := yaml.NewDecoder(file).Decode(fileConfig); err != nil {
		return err
	}

	mergeString(&config.Server.Host, fileConfig.Server.Host)
	mergeString(&config.Server.Port, fileConfig.Server.Port)
	mergeString(&config.Server.MetricsPort, fileConfig.Server.MetricsPort)
	mergeString(&config.Temporal.Address, fileConfig.Temporal.Address)
	mergeString(&config.Temporal.Namespace, fileConfig.Temporal.Namespace)
	mergeString(&config.Temporal.TaskQueue, fileConfig.Temporal.TaskQueue)
	mergeString(&config.Auth.APIToken, fileConfig.Auth.APIToken)
	mergeString(&config.CMDB.BaseURL, fileConfig.CMDB.BaseURL)
	mergeString(&config.CMDB.AppCode, fileConfig.CMDB.AppCode)
	mergeString(&config.CMDB.AppSecret, fileConfig.CMDB.AppSecret)
	mergeString(&config.CMDB.SystemUsername, fileConfig.CMDB.SystemUsername)
	mergeString(&config.CMDB.DefaultSupplierAccount, fileConfig.CMDB.DefaultSupplierAccount)
	if fileConfig.CMDB.PageLimit > 0 {
		config.CMDB.PageLimit = fileConfig.CMDB.PageLimit
	}
	mergeString(&config.Job.Host, fileConfig.Job.Host)
	mergeString(&config.Job.AccountAlias, fileConfig.Job.AccountAlias)
	if fileConfig.Job.ScriptTimeout > 0 {
		config.Job.ScriptTimeout = fileConfig.Job.ScriptTimeout
	}
	mergeString(&config.Nodeman.Host, fileConfig.Nodeman.Host)
	mergeString(&config.Callback.InnerHost, fileConfig.Callback.InnerHost)
	mergeString(&config.Callback.Key, fileConfig.Callback.Key)
	if fileConfig.Callback.Timeout > 0 {
		config.Callback.Timeout = fileConfig.Callback.Timeout
	}
	mergeString(&config.Infisical.BaseURL, fileConfig.Infisical.BaseURL)
	mergeString(&config.Infisical.ServiceToken, fileConfig.Infisical.ServiceToken)
	mergeString(&config.Infisical.Project, fileConfig.Infisical.Project)
	mergeString(&config.Infisical.Environment, fileConfig.Infisical.Environment)
	if len(fileConfig.Infisical.Secrets) > 0 {
		config.Infisical.Secrets = fileConfig.Infisical.Secrets
	}
	mergeString(&config.Discord.WebhookURL, fileConfig.Discord.WebhookURL)
	mergeString(&config.OTEL.CollectorURL, fileConfig.OTEL.CollectorURL)
	mergeString(&config.Logger.Level, fileConfig.Logger.Level)
	mergeString(&config.Logger.Format, fileConfig.Logger.Format)

	return nil
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func loadFromEnv(config *Config) {
	envString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	envString("HOST", &config.Server.Host)
	envString("PORT", &config.Server.Port)
	envString("METRICS_PORT", &config.Server.MetricsPort)
	envString("TEMPORAL_ADDRESS", &config.Temporal.Address)
	envString("TEMPORAL_NAMESPACE", &config.Temporal.Namespace)
	envString("TEMPORAL_TASK_QUEUE", &config.Temporal.TaskQueue)
	envString("API_TOKEN", &config.Auth.APIToken)
	envString("CMDB_BASE_URL", &config.CMDB.BaseURL)
	envString("CMDB_APP_CODE", &config.CMDB.AppCode)
	envString("CMDB_APP_SECRET", &config.CMDB.AppSecret)
	envString("CMDB_SYSTEM_USERNAME", &config.CMDB.SystemUsername)
	envString("CMDB_DEFAULT_SUPPLIER_ACCOUNT", &config.CMDB.DefaultSupplierAccount)
	envInt("CMDB_PAGE_LIMIT", &config.CMDB.PageLimit)
	envString("JOB_HOST", &config.Job.Host)
	envString("JOB_ACCOUNT_ALIAS", &config.Job.AccountAlias)
	envInt("JOB_SCRIPT_TIMEOUT", &config.Job.ScriptTimeout)
	envString("NODEMAN_HOST", &config.Nodeman.Host)
	envString("INNER_CALLBACK_HOST", &config.Callback.InnerHost)
	envString("CALLBACK_KEY", &config.Callback.Key)
	if v := os.Getenv("CALLBACK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Callback.Timeout = d
		}
	}
	envString("INFISICAL_BASE_URL", &config.Infisical.BaseURL)
	envString("INFISICAL_SERVICE_TOKEN", &config.Infisical.ServiceToken)
	envString("INFISICAL_PROJECT", &config.Infisical.Project)
	envString("INFISICAL_ENVIRONMENT", &config.Infisical.Environment)
	envString("DISCORD_WEBHOOK_URL", &config.Discord.WebhookURL)
	envString("OTEL_COLLECTOR_URL", &config.OTEL.CollectorURL)
	envString("LOG_LEVEL", &config.Logger.Level)
	envString("LOG_FORMAT", &config.Logger.Format)
}

func loadFromFlags(config *Config) {
	flag.StringVar(&config.Server.Host, "host", config.Server.Host, "server host")
	flag.StringVar(&config.Server.Port, "port", config.Server.Port, "server port")
	flag.StringVar(&config.Temporal.Address, "temporal-address", config.Temporal.Address, "temporal server address")
	flag.StringVar(&config.Temporal.Namespace, "temporal-namespace", config.Temporal.Namespace, "temporal namespace")
	flag.StringVar(&config.Temporal.TaskQueue, "temporal-task-queue", config.Temporal.TaskQueue, "temporal task queue")
	flag.StringVar(&config.CMDB.BaseURL, "cmdb-base-url", config.CMDB.BaseURL, "ESB base URL for CMDB and job platform")
	flag.StringVar(&config.OTEL.CollectorURL, "otel-collector-url", config.OTEL.CollectorURL, "OpenTelemetry collector URL")
	flag.StringVar(&config.Logger.Level, "log-level", config.Logger.Level, "log level")
	flag.StringVar(&config.Logger.Format, "log-format", config.Logger.Format, "log format")

	flag.Parse()
}

// ApplySecrets overrides secret settings with values fetched from Infisical,
// keyed by the env_name of each secret mapping
func (c *Config) ApplySecrets(secrets map[string]string) {
	mergeString(&c.Callback.Key, secrets[SecretCallbackKey])
	mergeString(&c.CMDB.AppSecret, secrets[SecretCMDBAppSecret])
	mergeString(&c.Auth.APIToken, secrets[SecretAPIToken])
}

// ValidateWorker checks the settings the worker needs
func (c *Config) ValidateWorker() error {
	if err := c.validateESB(); err != nil {
		return err
	}
	if c.Job.Host == "" {
		return fmt.Errorf("job.host is required")
	}
	if c.Callback.InnerHost == "" {
		return fmt.Errorf("callback.inner_host is required")
	}
	if !strings.HasSuffix(c.Callback.InnerHost, "/") {
		return fmt.Errorf("callback.inner_host must end with '/'")
	}
	if c.Callback.Key == "" {
		return fmt.Errorf("callback.key is required (set via CALLBACK_KEY environment variable, config file or Infisical)")
	}
	if c.Callback.Timeout <= 0 {
		return fmt.Errorf("callback.timeout must be positive")
	}
	return nil
}

// ValidateAPI checks the settings the API server needs
func (c *Config) ValidateAPI() error {
	if c.Auth.APIToken == "" {
		return fmt.Errorf("api_token is required")
	}
	if err := c.validateESB(); err != nil {
		return err
	}
	if c.Callback.Key == "" {
		return fmt.Errorf("callback.key is required (set via CALLBACK_KEY environment variable or config file)")
	}
	return nil
}

func (c *Config) validateESB() error {
	if c.CMDB.BaseURL == "" {
		return fmt.Errorf("cmdb.base_url is required")
	}
	if c.CMDB.AppCode == "" {
		return fmt.Errorf("cmdb.app_code is required")
	}
	if c.CMDB.AppSecret == "" {
		return fmt.Errorf("cmdb.app_secret is required")
	}
	if c.CMDB.PageLimit <= 0 {
		return fmt.Errorf("cmdb.page_limit must be positive")
	}
	return nil
}

// LoadSecrets fetches the configured Infisical secrets and applies them.
// It is a no-op when Infisical is not configured.
func (c *Config) LoadSecrets(ctx context.Context, manager domain.SecretManager) error {
	if !c.Infisical.Enabled() {
		return nil
	}
	secrets, err := manager.FetchSecretsByMapping(ctx, c.Infisical.Project, c.Infisical.Environment, c.Infisical.Secrets)
	if err != nil {
		return fmt.Errorf("failed to load secrets from Infisical: %w", err)
	}
	c.ApplySecrets(secrets)
	return nil
}
