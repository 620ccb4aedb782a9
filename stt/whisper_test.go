package stt_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/mrsingh-rishi/voice-diary/stt"
)

type upload struct {
	path     string
	auth     string
	model    string
	language string
	filename string
	body     []byte
}

func newWhisperServer(t *testing.T, text string, status int) (*httptest.Server, *upload) {
	t.Helper()
	got := &upload{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		got.model = r.FormValue("model")
		got.language = r.FormValue("language")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		got.filename = hdr.Filename
		got.body, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "boom", "type": "server_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(server.Close)
	return server, got
}

func newOpenAIClient(baseURL string) *openai.Client {
	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = baseURL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch files left behind: %v", entries)
	}
}

func TestWhisperClient_Transcribe(t *testing.T) {
	server, got := newWhisperServer(t, "今日は晴れでした", http.StatusOK)
	dir := t.TempDir()

	client, err := stt.NewWhisperClient(newOpenAIClient(server.URL), "whisper-1", "ja", dir, "m4a")
	if err != nil {
		t.Fatalf("NewWhisperClient: %v", err)
	}

	text, err := client.Transcribe(context.Background(), "123", []byte("stub-audio"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}

	if text != "今日は晴れでした" {
		t.Errorf("text: got %q", text)
	}
	if got.path != "/v1/audio/transcriptions" {
		t.Errorf("path: got %s", got.path)
	}
	if got.auth != "Bearer sk-test" {
		t.Errorf("Authorization: got %s", got.auth)
	}
	if got.model != "whisper-1" || got.language != "ja" {
		t.Errorf("model/language: got %s/%s", got.model, got.language)
	}
	if got.filename != "audio_123.m4a" {
		t.Errorf("filename: got %s", got.filename)
	}
	if string(got.body) != "stub-audio" {
		t.Errorf("uploaded bytes: got %q", got.body)
	}
	assertEmptyDir(t, dir)
}

func TestWhisperClient_TranscribeErrorCleansUp(t *testing.T) {
	server, _ := newWhisperServer(t, "", http.StatusInternalServerError)
	dir := t.TempDir()

	client, err := stt.NewWhisperClient(newOpenAIClient(server.URL), "", "ja", dir, "")
	if err != nil {
		t.Fatalf("NewWhisperClient: %v", err)
	}

	if _, err := client.Transcribe(context.Background(), "456", []byte("x")); err == nil {
		t.Fatal("expected error from failing transcription API")
	}
	assertEmptyDir(t, dir)
}

func TestNewWhisperClient_RequiresClient(t *testing.T) {
	if _, err := stt.NewWhisperClient(nil, "", "", "", ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestAudioFilename(t *testing.T) {
	if got := stt.AudioFilename("123", "m4a"); got != "audio_123.m4a" {
		t.Fatalf("AudioFilename: got %s", got)
	}
}
