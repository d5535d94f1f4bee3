package whisper_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sonicmuse/sonicmuse/pkg/provider/asr/whisper"
)

func TestNew_RequiresServerURL(t *testing.T) {
	t.Parallel()

	if _, err := whisper.New(""); err == nil {
		t.Fatal("New(\"\") returned nil error")
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	wavData := []byte("RIFF fake wav payload")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			t.Errorf("request = %s %s, want POST /inference", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("language"); got != "de" {
			t.Errorf("language field = %q, want de", got)
		}
		if got := r.FormValue("model"); got != "small" {
			t.Errorf("model field = %q, want small", got)
		}
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("response_format field = %q, want json", got)
		}

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		uploaded, _ := io.ReadAll(f)
		if !bytes.Equal(uploaded, wavData) {
			t.Error("uploaded audio does not match input")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"text": "  hello world ",
			"segments": []map[string]any{
				{"t0": 0.0, "t1": 1.2, "text": " hello "},
				{"t0": 1.2, "t1": 2.0, "text": " world "},
			},
		})
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL, whisper.WithLanguage("de"), whisper.WithModel("small"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := p.Transcribe(context.Background(), wavData)
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if got.Text != "hello world" {
		t.Errorf("Text = %q, want trimmed %q", got.Text, "hello world")
	}
	if len(got.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(got.Segments))
	}
	if got.Segments[0].Text != "hello" || got.Segments[0].End != 1.2 {
		t.Errorf("Segments[0] = %+v, want trimmed hello ending at 1.2", got.Segments[0])
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte("wav")); err == nil {
		t.Fatal("Transcribe() returned nil error for a 500 response")
	}
}

func TestTranscribe_InferenceErrorField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "audio too short"})
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), []byte("wav")); err == nil {
		t.Fatal("Transcribe() returned nil error for an inference error")
	}
}

func TestTranscribe_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Transcribe(ctx, []byte("wav")); err == nil {
		t.Fatal("Transcribe() with cancelled context returned nil error")
	}
}
