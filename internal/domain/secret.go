package domain

// SecretMapping represents a single secret mapping configuration
type SecretMapping struct {
	Path       string `json:"path" yaml:"path" validate:"required"`
	SecretName string `json:"secret_name" yaml:"secret_name" validate:"required"`
	EnvName    string `json:"env_name" yaml:"env_name" validate:"required"`
}
