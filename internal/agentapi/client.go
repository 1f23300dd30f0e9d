// Package agentapi habla con el endpoint de streaming del backend de agentes.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// StreamPath es la ruta del endpoint de chat con streaming.
const StreamPath = "/chat/stream"

// ContentTypeJSONStream es el media type de la respuesta: una linea JSON por evento.
const ContentTypeJSONStream = "application/x-json-stream"

var ErrNoResponseBody = errors.New("response body is null")

// StreamRequest es el cuerpo del POST.
type StreamRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// Transport abre un stream de eventos para un turno. El llamador cierra el body.
type Transport interface {
	Stream(ctx context.Context, req StreamRequest) (io.ReadCloser, error)
}

// StatusError se devuelve cuando el backend responde con un status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent backend error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("agent backend error: status=%d: %s", e.StatusCode, e.Body)
}

// HTTPClient implementa Transport sobre net/http.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye el cliente apuntando a baseURL. Sin timeout global:
// la respuesta es un stream que puede durar lo que dure el turno.
func NewHTTPClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  logger,
	}
}

func (c *HTTPClient) Stream(ctx context.Context, in StreamRequest) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+StreamPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", ContentTypeJSONStream)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("agent backend error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, ErrNoResponseBody
	}

	return resp.Body, nil
}
