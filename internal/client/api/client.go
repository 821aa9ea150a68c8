package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/pkg/api"
)

// ErrNotFound координатор ответил 404
var ErrNotFound = errors.New("not found")

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 100 * time.Millisecond
	defaultTimeout      = 30 * time.Second
)

// Client представляет HTTP клиент координатора синхронизации.
// Повторы при сетевых ошибках и 5xx выполняет retryablehttp: сервер
// идемпотентен по id изменения, поэтому повтор push безопасен.
type Client struct {
	httpClient *retryablehttp.Client
	logger     *slog.Logger
	baseURL    string
	deviceID   string
}

// Option настраивает Client
type Option func(*Client)

// WithLogger задает логгер; *slog.Logger удовлетворяет retryablehttp.LeveledLogger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = logger
		c.httpClient.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
			c.logger.Debug("Response received",
				"url", resp.Request.URL.String(),
				"status", resp.StatusCode)
		}
	}
}

// WithRetry задает число повторов и минимальную паузу между ними
func WithRetry(retryMax int, waitMin time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = 10 * waitMin
	}
}

// WithHTTPClient задает нижележащий http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = client
	}
}

// WithDeviceID подписывает запросы идентификатором устройства
func WithDeviceID(deviceID string) Option {
	return func(c *Client) {
		c.deviceID = deviceID
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		logger:  slog.New(slog.DiscardHandler),
		httpClient: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: defaultTimeout},
			RetryMax:     defaultRetryMax,
			RetryWaitMin: defaultRetryWaitMin,
			RetryWaitMax: 10 * defaultRetryWaitMin,
			Backoff:      retryablehttp.DefaultBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PushChanges отправляет ожидающие изменения и получает подтверждения, конфликты и чужие изменения
func (c *Client) PushChanges(ctx context.Context, req api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, api.PathPush, req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// ResolveConflict отправляет результат разрешения конфликта
func (c *Client) ResolveConflict(ctx context.Context, req api.ResolveRequest) (*api.ResolveResponse, error) {
	var resp api.ResolveResponse
	if err := c.doRequest(ctx, http.MethodPost, api.PathResolve, req, &resp); err != nil {
		return nil, fmt.Errorf("resolve request failed: %w", err)
	}
	return &resp, nil
}

// GetRecord получает текущую версию записи координатора
func (c *Client) GetRecord(ctx context.Context, resourceType, resourceID string) (*models.VersionedData, error) {
	var record models.VersionedData
	path := api.PathRecords + url.PathEscape(resourceType) + "/" + url.PathEscape(resourceID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, fmt.Errorf("get record request failed: %w", err)
	}
	return &record, nil
}

// Health проверяет доступность координатора
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, api.PathHealth, nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.deviceID != "" {
		req.Header.Set(api.HeaderDeviceID, c.deviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := string(respBody)
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			message = errResp.Error
			if errResp.Message != "" {
				message += ": " + errResp.Message
			}
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, message)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
