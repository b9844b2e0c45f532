package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext"
)

func TestTranscribeReturnsRecognizedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("expected audio form file: %v", err)
		}
		defer file.Close()
		if header.Size == 0 {
			t.Fatalf("expected non-empty audio upload")
		}
		if got := r.FormValue("language"); got != "ja" {
			t.Fatalf("expected language hint ja, got %q", got)
		}

		json.NewEncoder(w).Encode(map[string]any{"success": true, "text": "recognized text"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	result, err := client.Transcribe(context.Background(), speechtotext.Request{
		Audio:    make([]byte, 4096),
		Encoding: audio.GetDefaultEncodingInfo(),
		Language: "ja",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "recognized text" {
		t.Fatalf("expected recognized text, got %q", result.Text)
	}
}

func TestTranscribeMapsBackendFailureToRecognitionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "recording too short"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	_, err := client.Transcribe(context.Background(), speechtotext.Request{
		Audio:    make([]byte, 4096),
		Encoding: audio.GetDefaultEncodingInfo(),
	})

	recognitionErr := &speechtotext.RecognitionError{}
	if !errors.As(err, &recognitionErr) {
		t.Fatalf("expected RecognitionError, got %v", err)
	}
	if recognitionErr.Reason != "recording too short" {
		t.Fatalf("expected backend reason to carry through, got %q", recognitionErr.Reason)
	}
}

func TestTranscribeEmptyTextIsRecognitionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "text": ""})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	_, err := client.Transcribe(context.Background(), speechtotext.Request{
		Audio:    make([]byte, 4096),
		Encoding: audio.GetDefaultEncodingInfo(),
	})

	recognitionErr := &speechtotext.RecognitionError{}
	if !errors.As(err, &recognitionErr) {
		t.Fatalf("expected RecognitionError for empty text, got %v", err)
	}
}

func TestWavContainerWrapsPCM(t *testing.T) {
	pcm := make([]byte, 320)
	wav := wavContainer(pcm, audio.GetDefaultEncodingInfo())

	if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("expected RIFF/WAVE header, got %q %q", wav[:4], wav[8:12])
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected 44-byte header plus payload, got %d bytes", len(wav))
	}
}
