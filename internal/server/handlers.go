package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sonicmuse/sonicmuse/internal/jobstore"
	"github.com/sonicmuse/sonicmuse/internal/observe"
	"github.com/sonicmuse/sonicmuse/pkg/analysis"
	"github.com/sonicmuse/sonicmuse/pkg/audio"
	"github.com/sonicmuse/sonicmuse/pkg/control"
	"github.com/sonicmuse/sonicmuse/pkg/mix"
	"github.com/sonicmuse/sonicmuse/pkg/types"
)

// maxUploadBytes caps multipart form memory and upload size.
const maxUploadBytes = 64 << 20

// defaultJobsLimit is how many jobs /jobs returns when no limit is given.
const defaultJobsLimit = 20

// analyzeResponse mirrors the analysis result with the transcript flattened
// for API consumers.
type analyzeResponse struct {
	JobID      string               `json:"job_id,omitempty"`
	Transcript string               `json:"transcript"`
	Segments   []types.Segment      `json:"segments"`
	Features   *analysis.FeatureSet `json:"features"`
	Controls   control.Controls     `json:"controls"`
	Prompt     string               `json:"prompt"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.pipeline.Analyze(r.Context(), data)
	if err != nil {
		s.failJob(r, jobstore.KindAnalyze, err)
		writeError(w, statusFor(err), err)
		return
	}

	jobID := s.recordJob(r, jobstore.KindAnalyze, a.Controls, a.Prompt)
	writeJSON(w, http.StatusOK, analyzeResponse{
		JobID:      jobID,
		Transcript: a.Transcript.Text,
		Segments:   a.Transcript.Segments,
		Features:   a.Features,
		Controls:   a.Controls,
		Prompt:     a.Prompt,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, errors.New("prompt is required"))
		return
	}
	c := control.Controls{
		TempoBPM: formInt(r, "tempo_bpm", 120),
		Key:      control.Key(formString(r, "key", string(control.KeyCMajor))),
	}

	wav, err := s.pipeline.GeneratePrompt(r.Context(), prompt, c,
		formInt(r, "duration", 0), int64(formInt(r, "seed", 0)))
	if err != nil {
		s.failJob(r, jobstore.KindGenerate, err)
		writeError(w, statusFor(err), err)
		return
	}

	s.recordJob(r, jobstore.KindGenerate, c, prompt)
	writeWAV(w, wav, "background_music.wav", nil)
}

func (s *Server) handleMix(w http.ResponseWriter, r *http.Request) {
	dialogue, err := readUpload(r, "file_dialogue")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	background, err := readUpload(r, "file_bg")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	params := s.cfg.MixParams
	params.BackgroundDB = formFloat(r, "bg_db", params.BackgroundDB)
	params.Ducking = formFloat(r, "ducking", params.Ducking)

	mixed, err := mix.Mix(dialogue, background, params)
	if err != nil {
		s.failJob(r, jobstore.KindMix, err)
		writeError(w, statusFor(err), err)
		return
	}

	s.recordJob(r, jobstore.KindMix, control.Controls{}, "")
	writeWAV(w, mixed, "mixed_audio.wav", nil)
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	comp, err := s.pipeline.Compose(r.Context(), data)
	if err != nil {
		s.failJob(r, jobstore.KindCompose, err)
		writeError(w, statusFor(err), err)
		return
	}

	s.recordJob(r, jobstore.KindCompose, comp.Analysis.Controls, comp.Analysis.Prompt)
	writeWAV(w, comp.Mixed, "composed_audio.wav", map[string]string{
		"X-Prompt":          comp.Analysis.Prompt,
		"X-Processing-Time": fmt.Sprintf("%.2f", time.Since(start).Seconds()),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	jobs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid job id"))
		return
	}

	job, err := s.store.Get(r.Context(), id)
	if errors.Is(err, jobstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// recordJob persists a completed job when a store is configured and returns
// the job ID (empty without a store). Store failures are logged, never
// surfaced to the client.
func (s *Server) recordJob(r *http.Request, kind jobstore.Kind, c control.Controls, prompt string) string {
	if s.store == nil {
		return ""
	}
	ctx := r.Context()
	job := jobstore.NewJob(kind)
	job.Status = jobstore.StatusDone
	job.Controls = c
	job.Prompt = prompt
	job.TraceID = observe.CorrelationID(ctx)
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, job); err != nil {
		observe.Logger(ctx).Warn("failed to record job", "kind", kind, "error", err)
		return ""
	}
	if s.cfg.RetainJobs > 0 {
		if err := s.store.Prune(ctx, s.cfg.RetainJobs); err != nil {
			observe.Logger(ctx).Warn("failed to prune jobs", "error", err)
		}
	}
	return job.ID.String()
}

// failJob records a failed job when a store is configured.
func (s *Server) failJob(r *http.Request, kind jobstore.Kind, cause error) {
	if s.store == nil {
		return
	}
	ctx := r.Context()
	job := jobstore.NewJob(kind)
	job.Status = jobstore.StatusFailed
	job.Error = cause.Error()
	job.TraceID = observe.CorrelationID(ctx)
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, job); err != nil {
		observe.Logger(ctx).Warn("failed to record job", "kind", kind, "error", err)
	}
}

// readUpload extracts one uploaded file's bytes from a multipart form.
func readUpload(r *http.Request, field string) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing upload %q: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", field, err)
	}
	return data, nil
}

// statusFor maps pipeline errors to HTTP status codes. Malformed audio is the
// client's fault; everything else is a server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, audio.ErrDecode), errors.Is(err, mix.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func formString(r *http.Request, field, fallback string) string {
	if v := r.FormValue(field); v != "" {
		return v
	}
	return fallback
}

func formInt(r *http.Request, field string, fallback int) int {
	v := r.FormValue(field)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func formFloat(r *http.Request, field string, fallback float64) float64 {
	v := r.FormValue(field)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// writeJSON encodes v with the proper content type. Encoding failures fall
// back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeWAV streams an encoded WAV as a download attachment.
func writeWAV(w http.ResponseWriter, data []byte, filename string, extra map[string]string) {
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `attachment; filename=`+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	for k, v := range extra {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
