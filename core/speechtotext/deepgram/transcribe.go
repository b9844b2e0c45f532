// Package deepgram transcribes finalized utterances over Deepgram's listen
// websocket. The pipeline's contract is synchronous, so the whole buffer is
// streamed up front and the connection is drained to a final transcript.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext"
)

const sendChunkSize = 8192

type TranscriptionClient struct {
	apiKey   string
	model    string
	language string
}

type ClientOption func(*TranscriptionClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment lookup.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

// WithModel selects the recognition model.
func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

// WithLanguage sets the default recognition language.
func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		model:    "nova-3",
		language: "en-US",
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, req speechtotext.Request) (speechtotext.Result, error) {
	encodingName, sampleRate, err := listenParams(req.Encoding)
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("invalid encoding: %w", err)
	}

	language := c.language
	if req.Language != "" {
		language = req.Language
	}

	conn, err := c.connectWebsocket(connectionOptions{
		sampleRate: sampleRate,
		encoding:   encodingName,
		language:   language,
	})
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := sendBuffer(conn, req.Audio); err != nil {
		return speechtotext.Result{}, err
	}

	transcript, err := drainTranscript(conn)
	if err != nil {
		if ctx.Err() != nil {
			return speechtotext.Result{}, ctx.Err()
		}
		return speechtotext.Result{}, err
	}
	if transcript == "" {
		return speechtotext.Result{}, &speechtotext.RecognitionError{Reason: "no usable text recognized"}
	}

	return speechtotext.Result{Text: transcript}, nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string
	language   string
}

func (c *TranscriptionClient) connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("DEEPGRAM_API_KEY"); !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
	}

	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func sendBuffer(conn *websocket.Conn, buf []byte) error {
	for offset := 0; offset < len(buf); offset += sendChunkSize {
		end := min(offset+sendChunkSize, len(buf))
		if err := conn.WriteMessage(websocket.BinaryMessage, buf[offset:end]); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}

	return nil
}

func drainTranscript(conn *websocket.Conn) (string, error) {
	accumulated := ""
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return strings.TrimSpace(accumulated), nil
			}
			return strings.TrimSpace(accumulated), fmt.Errorf("failed to read deepgram websocket message: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			log.Println("Failed to unmarshal deepgram message", "error", err)
			continue
		}

		switch api.TypeResponse(parsedMsg.Type) {
		case api.TypeMessageResponse:
			var msgResp api.MessageResponse
			if err := json.Unmarshal(msg, &msgResp); err != nil {
				log.Println("Failed to unmarshal deepgram message", err)
				continue
			}
			if msgResp.IsFinal && len(msgResp.Channel.Alternatives) > 0 {
				transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
				if len(transcript) > 0 {
					accumulated += " " + transcript
				}
			}
			if msgResp.FromFinalize {
				return strings.TrimSpace(accumulated), nil
			}
		}
	}
}
