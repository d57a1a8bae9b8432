package esb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const apiPrefix = "/api/c/compapi/v2/"

// APIError is returned when the gateway answers with result=false
type APIError struct {
	Path      string
	Code      int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ESB %s returned code %d: %s (request_id: %s)", e.Path, e.Code, e.Message, e.RequestID)
}

type envelope struct {
	Result    bool            `json:"result"`
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// Page is the paged list returned by list APIs
type Page struct {
	Count int             `json:"count"`
	Info  json.RawMessage `json:"info"`
}

// Client calls component APIs through the ESB gateway
type Client struct {
	baseURL    string
	appCode    string
	appSecret  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new ESB client
func NewClient(baseURL, appCode, appSecret string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		appCode:    appCode,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Post calls the component API at path (e.g. "cc/search_business/") on behalf
// of username and decodes the data field into out
func (c *Client) Post(ctx context.Context, path, username string, params map[string]interface{}, out interface{}) error {
	body := make(map[string]interface{}, len(params)+3)
	for k, v := range params {
		body[k] = v
	}
	body["bk_app_code"] = c.appCode
	body["bk_app_secret"] = c.appSecret
	body["bk_username"] = username

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := c.baseURL + apiPrefix + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending ESB request",
		zap.String("url", url),
		zap.String("username", username),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to send ESB request",
			zap.Error(err),
			zap.String("url", url),
		)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ESB returned error status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("url", url),
			zap.String("response_body", string(bodyBytes)),
		)
		return fmt.Errorf("ESB %s returned status %d: %s", path, resp.StatusCode, string(bodyBytes))
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !env.Result {
		c.logger.Error("ESB returned result=false",
			zap.String("url", url),
			zap.Int("code", env.Code),
			zap.String("message", env.Message),
			zap.String("request_id", env.RequestID),
		)
		return &APIError{Path: path, Code: env.Code, Message: env.Message, RequestID: env.RequestID}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", path, err)
	}
	return nil
}

// PostPaged walks a paged list API with the given page size, handing the raw
// info array of each page to each until count is reached
func (c *Client) PostPaged(ctx context.Context, path, username string, params map[string]interface{}, limit int, each func(info json.RawMessage) error) error {
	if limit <= 0 {
		return fmt.Errorf("page limit must be positive, got %d", limit)
	}

	for start := 0; ; start += limit {
		pageParams := make(map[string]interface{}, len(params)+1)
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams["page"] = map[string]int{"start": start, "limit": limit}

		var page Page
		if err := c.Post(ctx, path, username, pageParams, &page); err != nil {
			return err
		}
		if len(page.Info) > 0 {
			if err := each(page.Info); err != nil {
				return err
			}
		}
		if start+limit >= page.Count {
			return nil
		}
	}
}
