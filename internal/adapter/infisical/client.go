package infisical

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client implements domain.SecretManager interface
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	logger       *zap.Logger
	cache        *secretCache
	now          func() time.Time
}

type secretCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	value     string
	expiresAt time.Time
}

const cacheTTL = 5 * time.Minute

// NewClient creates a new Infisical client
func NewClient(baseURL, serviceToken string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		cache: &secretCache{
			items: make(map[string]cacheItem),
		},
		now: time.Now,
	}
}

// FetchSecretsByMapping fetches secrets from Infisical based on secret mappings
func (c *Client) FetchSecretsByMapping(ctx context.Context, workspaceSlug, environment string, mappings []domain.SecretMapping) (map[string]string, error) {
	result := make(map[string]string, len(mappings))

	for _, mapping := range mappings {
		secretValue, err := c.fetchSecretRaw(ctx, workspaceSlug, environment, mapping.SecretName, mapping.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch secret %s from path %s: %w", mapping.SecretName, mapping.Path, err)
		}

		result[mapping.EnvName] = secretValue
	}

	return result, nil
}

func (c *Client) cached(key string) (string, bool) {
	c.cache.mu.RLock()
	defer c.cache.mu.RUnlock()

	item, ok := c.cache.items[key]
	if !ok || !c.now().Before(item.expiresAt) {
		return "", false
	}
	return item.value, true
}

// fetchSecretRaw fetches a single secret using the raw API endpoint
func (c *Client) fetchSecretRaw(ctx context.Context, workspaceSlug, environment, secretName, secretPath string) (string, error) {
	cacheKey := fmt.Sprintf("%s:%s:%s:%s", workspaceSlug, environment, secretPath, secretName)
	if value, ok := c.cached(cacheKey); ok {
		c.logger.Debug("Returning secret from cache", zap.String("cache_key", cacheKey))
		return value, nil
	}

	url := fmt.Sprintf("%s/api/v3/secrets/raw/%s", c.baseURL, secretName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceToken))
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	q.Set("environment", environment)
	q.Set("workspaceSlug", workspaceSlug)
	q.Set("secretPath", secretPath)
	q.Set("expandSecretReferences", "true")
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("Fetching secret from Infisical",
		zap.String("workspace_slug", workspaceSlug),
		zap.String("environment", environment),
		zap.String("secret_name", secretName),
		zap.String("secret_path", secretPath),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Infisical API error response",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(bodyBytes)),
			zap.String("url", req.URL.String()),
		)
		return "", fmt.Errorf("Infisical API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	secretValue, err := decodeSecret(bodyBytes)
	if err != nil {
		c.logger.Error("Failed to parse Infisical API response",
			zap.Error(err),
			zap.String("url", req.URL.String()),
			zap.String("content_type", resp.Header.Get("Content-Type")),
		)
		return "", err
	}

	c.cache.mu.Lock()
	c.cache.items[cacheKey] = cacheItem{
		value:     secretValue,
		expiresAt: c.now().Add(cacheTTL),
	}
	c.cache.mu.Unlock()

	return secretValue, nil
}

// decodeSecret accepts both {"secret": {"secretValue": ...}} and the older
// {"value": ...} response shapes
func decodeSecret(body []byte) (string, error) {
	if !json.Valid(body) {
		preview := body
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return "", fmt.Errorf("failed to decode response: invalid JSON (response preview: %s)", string(preview))
	}

	var response struct {
		Secret struct {
			SecretValue string `json:"secretValue"`
			Value       string `json:"value"`
		} `json:"secret"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	switch {
	case response.Secret.SecretValue != "":
		return response.Secret.SecretValue, nil
	case response.Secret.Value != "":
		return response.Secret.Value, nil
	case response.Value != "":
		return response.Value, nil
	}
	return "", fmt.Errorf("response carries no secret value")
}

// Ensure Client implements domain.SecretManager
var _ domain.SecretManager = (*Client)(nil)
