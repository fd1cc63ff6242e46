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

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI is the authority transport used by the sync engine and the CLI.
type ClientAPI interface {
	// Register creates a user on the authority
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)

	// Login exchanges credentials for a bearer token
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)

	// Refresh exchanges a refresh token for a new token pair
	Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error)

	// Create sends a never-synced document to the collection endpoint (POST)
	Create(ctx context.Context, token string, entityType models.EntityType, id string, fields models.Fields) error

	// Update sends a previously synced document to {endpoint}/{id} (PUT)
	Update(ctx context.Context, token string, entityType models.EntityType, id string, fields models.Fields) error

	// Delete removes a document from the authority (DELETE {endpoint}/{id})
	Delete(ctx context.Context, token string, entityType models.EntityType, id string) error

	// List fetches the authority's current record set of one type
	List(ctx context.Context, token string, entityType models.EntityType) ([]RemoteDocument, error)
}

// Client представляет HTTP клиент для взаимодействия с authority
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoints  map[models.EntityType]Endpoint
	baseURL    string
	retries    uint64
	retryBase  time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithEndpoints overrides the collection endpoints.
func WithEndpoints(endpoints map[models.EntityType]Endpoint) Option {
	return func(c *Client) {
		for t, ep := range endpoints {
			c.endpoints[t] = ep
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets how many times an idempotent GET is retried on transient failures.
func WithRetries(n uint64, base time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.retryBase = base
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		endpoints: DefaultEndpoints(),
		retries:   3,
		retryBase: 200 * time.Millisecond,
		logger:    slog.New(slog.DiscardHandler),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint of an entity type.
func (c *Client) Endpoint(entityType models.EntityType) (Endpoint, error) {
	ep, ok := c.endpoints[entityType]
	if !ok || ep.Path == "" {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
	return ep, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обновляет пару токенов; refresh token передается как Bearer
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", refreshToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Create отправляет новый документ (POST на коллекцию)
func (c *Client) Create(ctx context.Context, token string, entityType models.EntityType, id string, fields models.Fields) error {
	ep, err := c.Endpoint(entityType)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, http.MethodPost, ep.Path, token, payload(ep, id, fields), nil)
}

// Update отправляет изменения документа (PUT на {endpoint}/{id})
func (c *Client) Update(ctx context.Context, token string, entityType models.EntityType, id string, fields models.Fields) error {
	ep, err := c.Endpoint(entityType)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, http.MethodPut, itemPath(ep, id), token, payload(ep, id, fields), nil)
}

// Delete удаляет документ на authority
func (c *Client) Delete(ctx context.Context, token string, entityType models.EntityType, id string) error {
	ep, err := c.Endpoint(entityType)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, http.MethodDelete, itemPath(ep, id), token, nil, nil)
}

// List получает все записи коллекции. Транзиентные ошибки повторяются с экспоненциальной задержкой.
func (c *Client) List(ctx context.Context, token string, entityType models.EntityType) ([]RemoteDocument, error) {
	ep, err := c.Endpoint(entityType)
	if err != nil {
		return nil, err
	}

	var raw []byte
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := c.get(ctx, ep.Path, token)
		if err != nil {
			if isTransient(err) {
				c.logger.Debug("retrying list request", "entity_type", entityType, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		raw = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s failed: %w", entityType, err)
	}

	items, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entityType, err)
	}

	docs := make([]RemoteDocument, 0, len(items))
	for i, item := range items {
		doc, err := decodeItem(item, ep.IDAliases)
		if err != nil {
			c.logger.Warn("skipping malformed remote item", "entity_type", entityType, "index", i, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func itemPath(ep Endpoint, id string) string {
	return ep.Path + "/" + url.PathEscape(id)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	// ошибки транспорта (timeout, DNS, connection refused)
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Client) get(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

// doRequest выполняет HTTP запрос с JSON телом
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		}
		return nil, statusErr
	}

	return respBody, nil
}
