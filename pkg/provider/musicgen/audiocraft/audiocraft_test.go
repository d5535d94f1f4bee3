package audiocraft_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen"
	"github.com/sonicmuse/sonicmuse/pkg/provider/musicgen/audiocraft"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := audiocraft.New(""); err == nil {
		t.Fatal("New(\"\") returned nil error")
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	wav := []byte("RIFF generated audio")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("request = %s %s, want POST /generate", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		want := map[string]string{
			"prompt":    "Dark ambient, 90 BPM",
			"duration":  "30",
			"seed":      "42",
			"tempo_bpm": "90",
			"key":       "Amin",
		}
		for field, wantVal := range want {
			if got := r.FormValue(field); got != wantVal {
				t.Errorf("form field %s = %q, want %q", field, got, wantVal)
			}
		}
		w.Write(wav)
	}))
	defer srv.Close()

	c, err := audiocraft.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := c.Generate(context.Background(), musicgen.Request{
		Prompt:          "Dark ambient, 90 BPM",
		DurationSeconds: 30,
		Seed:            42,
		TempoBPM:        90,
		Key:             "Amin",
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !bytes.Equal(got, wav) {
		t.Error("Generate() did not return the server's waveform")
	}
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	t.Parallel()

	c, err := audiocraft.New("http://localhost:1")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := c.Generate(context.Background(), musicgen.Request{}); err == nil {
		t.Fatal("Generate() accepted an empty prompt")
	}
}

func TestGenerate_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "out of memory", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := audiocraft.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := c.Generate(context.Background(), musicgen.Request{Prompt: "x"}); err == nil {
		t.Fatal("Generate() returned nil error for a 503 response")
	}
}

func TestGenerate_EmptyWaveform(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c, err := audiocraft.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := c.Generate(context.Background(), musicgen.Request{Prompt: "x"}); err == nil {
		t.Fatal("Generate() accepted an empty waveform")
	}
}
