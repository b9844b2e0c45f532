// Package whisper transcribes finalized utterances through a Whisper-backed
// HTTP endpoint: a multipart upload in, a {success, text, error} JSON
// envelope out.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

// WithModel overrides the recognition model requested from the backend.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the underlying HTTP client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint: endpoint,
		model:    "whisper-1",
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type transcribeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

func (c *Client) Transcribe(ctx context.Context, req speechtotext.Request) (speechtotext.Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "utterance.wav")
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavContainer(req.Audio, req.Encoding)); err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to write model field: %w", err)
	}
	if req.Language != "" {
		if err := writer.WriteField("language", req.Language); err != nil {
			return speechtotext.Result{}, fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to build transcription request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to read transcription response: %w", err)
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to decode transcription response (status %d): %w", resp.StatusCode, err)
	}

	if !parsed.Success || parsed.Text == "" {
		reason := parsed.Error
		if reason == "" {
			reason = "no usable text recognized"
		}
		return speechtotext.Result{}, &speechtotext.RecognitionError{Reason: reason}
	}

	return speechtotext.Result{Text: parsed.Text}, nil
}
