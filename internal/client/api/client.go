package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/iudanet/tabsync/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет интерфейс для взаимодействия с сервером синхронизации
type ClientAPI interface {
	// Token обменивает device id и общий sync token на access token
	Token(ctx context.Context, req api.TokenRequest) (*api.TokenResponse, error)

	// Sync отправляет батч операций и получает операции других устройств
	Sync(ctx context.Context, accessToken string, req api.SyncRequest) (*api.SyncResponse, error)
}

// maxRetries ограничивает количество повторов транзиентных ошибок.
// Повторяются только сетевые сбои и ответы 5xx; клиентские ошибки (4xx)
// повтором не лечатся.
const maxRetries = 3

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Token обменивает device id и общий sync token на access token
func (c *Client) Token(ctx context.Context, req api.TokenRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/token", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	return &resp, nil
}

// Sync отправляет батч операций и получает операции других устройств
func (c *Client) Sync(ctx context.Context, accessToken string, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync", accessToken, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос с повтором транзиентных сбоев
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var jsonData []byte
	if body != nil {
		var err error
		jsonData, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	attempt := func() error {
		return c.attemptRequest(ctx, method, path, token, jsonData, result)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)

	return backoff.Retry(attempt, policy)
}

// attemptRequest выполняет одну попытку HTTP запроса.
// Ошибки, которые не лечатся повтором, помечаются как Permanent.
func (c *Client) attemptRequest(ctx context.Context, method, path, token string, jsonData []byte, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if jsonData != nil {
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if jsonData != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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
		err := statusError(resp.StatusCode, respBody)
		if resp.StatusCode >= 500 {
			return err
		}
		return backoff.Permanent(err)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}

// statusError формирует ошибку из неуспешного ответа сервера
func statusError(statusCode int, respBody []byte) error {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("server error (%d): %s", statusCode, errResp.Error)
	}
	return fmt.Errorf("request failed with status %d: %s", statusCode, string(respBody))
}
