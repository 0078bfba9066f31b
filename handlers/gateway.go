package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"videoGateway/dto"
	"videoGateway/jobs"
	"videoGateway/middleware"
	"videoGateway/models"
	"videoGateway/store"
)

// Jobs is the slice of the job manager the boundary needs.
type Jobs interface {
	Create() string
	Run(jobID string, fn jobs.PipelineFunc) error
	RunSync(ctx context.Context, jobID string, fn jobs.PipelineFunc) (*models.ConversionResult, error)
	Get(jobID string) (models.Job, bool)
}

type PipelineRunner interface {
	Run(ctx context.Context, jobID string, req *models.EncodingRequest) (*models.ConversionResult, error)
}

type Gateway struct {
	jobs       Jobs
	pipeline   PipelineRunner
	artifacts  *store.ArtifactStore
	scratchDir string
	maxUpload  int64
	logger     *zap.Logger
}

func NewGateway(jobs Jobs, pipeline PipelineRunner, artifacts *store.ArtifactStore, scratchDir string, maxUpload int64, logger *zap.Logger) *Gateway {
	return &Gateway{
		jobs:       jobs,
		pipeline:   pipeline,
		artifacts:  artifacts,
		scratchDir: scratchDir,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

func (g *Gateway) Register(mux *http.ServeMux) {
	mux.HandleFunc("/convert", g.Convert)
	mux.HandleFunc("/enqueue", g.Enqueue)
	mux.HandleFunc("/enqueue_file", g.EnqueueFile)
	mux.HandleFunc("/status", g.Status)
	mux.HandleFunc("/file/", g.File)
	mux.HandleFunc("/result/", g.File)
	mux.HandleFunc("/thumb/", g.Thumb)
	mux.HandleFunc("/health", g.Health)
}

// Convert runs the whole pipeline inline and answers with the result.
func (g *Gateway) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodPost {
		g.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	encReq, ok := g.decodeRequest(w, r, traceID)
	if !ok {
		return
	}

	jobID := g.jobs.Create()
	result, err := g.jobs.RunSync(r.Context(), jobID, func(ctx context.Context) (*models.ConversionResult, error) {
		return g.pipeline.Run(ctx, jobID, encReq)
	})
	if err != nil {
		g.handleError(w, "Conversion failed: "+err.Error(), err, traceID, http.StatusInternalServerError)
		return
	}

	resp := &dto.ConvertResponse{
		Status:   "done",
		MP4URL:   "/file/" + jobID + ".mp4",
		ResultMB: roundMB(result.ResultBytes),
		Width:    result.Width,
		Height:   result.Height,
		Note:     result.Note,
	}
	if result.ThumbPath != "" {
		resp.ThumbURL = "/thumb/" + jobID + ".jpg"
	}

	g.respondJSON(w, http.StatusOK, resp)
}

// Enqueue accepts a URL job and answers before the pipeline runs.
// Pipeline errors are observable only through later status polls.
func (g *Gateway) Enqueue(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodPost {
		g.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	encReq, ok := g.decodeRequest(w, r, traceID)
	if !ok {
		return
	}

	jobID := g.jobs.Create()
	if err := g.jobs.Run(jobID, func(ctx context.Context) (*models.ConversionResult, error) {
		return g.pipeline.Run(ctx, jobID, encReq)
	}); err != nil {
		g.handleError(w, "Failed to schedule job", err, traceID, http.StatusInternalServerError)
		return
	}

	g.logger.Info("Job enqueued",
		zap.String("trace_id", traceID),
		zap.String("job_id", jobID),
		zap.String("url", encReq.SourceURL),
	)

	g.respondJSON(w, http.StatusAccepted, g.enqueueResponse(jobID))
}

// EnqueueFile accepts a multipart upload: field "file" holds the
// source, optional field "opts" holds the JSON conversion options.
func (g *Gateway) EnqueueFile(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodPost {
		g.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, g.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		g.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		g.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validateVideoUpload(file, header); err != nil {
		g.handleError(w, "Invalid file: "+err.Error(), err, traceID, http.StatusBadRequest)
		return
	}

	var convReq dto.ConvertRequest
	if opts := r.FormValue("opts"); opts != "" {
		if err := json.Unmarshal([]byte(opts), &convReq); err != nil {
			g.handleError(w, "Invalid opts", err, traceID, http.StatusBadRequest)
			return
		}
	} else {
		// Uploads without options get the coarse size heuristic.
		convReq.Mode = string(models.ModeAuto)
	}

	encReq, err := convReq.ToEncodingRequest(false)
	if err != nil {
		g.handleError(w, "Invalid request: "+err.Error(), err, traceID, http.StatusBadRequest)
		return
	}

	// Save before creating the job record: a failed save must not
	// leave a queued job behind that nothing will ever run.
	scratchPath := filepath.Join(g.scratchDir, uuid.New().String()+uploadExt(header.Filename))
	if err := saveUpload(file, scratchPath); err != nil {
		g.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}
	encReq.SourcePath = scratchPath

	jobID := g.jobs.Create()
	if err := g.jobs.Run(jobID, func(ctx context.Context) (*models.ConversionResult, error) {
		return g.pipeline.Run(ctx, jobID, encReq)
	}); err != nil {
		g.handleError(w, "Failed to schedule job", err, traceID, http.StatusInternalServerError)
		return
	}

	g.logger.Info("Upload enqueued",
		zap.String("trace_id", traceID),
		zap.String("job_id", jobID),
		zap.String("filename", header.Filename),
	)

	g.respondJSON(w, http.StatusAccepted, g.enqueueResponse(jobID))
}

func (g *Gateway) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		g.handleError(w, "job_id is required", nil, traceID, http.StatusBadRequest)
		return
	}

	job, ok := g.jobs.Get(jobID)
	if !ok {
		g.handleError(w, "Job not found", dto.ErrJobNotFound, traceID, http.StatusNotFound)
		return
	}

	resp := &dto.StatusResponse{
		JobID:  job.ID,
		Status: string(job.Status),
		Error:  job.Error,
		Note:   job.Note,
	}
	if job.Status == models.StatusDone {
		resp.OutURL = "/file/" + job.ID + ".mp4"
		if job.ThumbPath != "" {
			resp.ThumbURL = "/thumb/" + job.ID + ".jpg"
		}
	}

	g.respondJSON(w, http.StatusOK, resp)
}

// File serves the finished artifact for /file/<id>.mp4 and /result/<id>.
func (g *Gateway) File(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := pathJobID(r.URL.Path)
	if jobID == "" {
		g.handleError(w, "job_id is required", nil, traceID, http.StatusBadRequest)
		return
	}

	job, ok := g.jobs.Get(jobID)
	if !ok {
		g.handleError(w, "Job not found", dto.ErrJobNotFound, traceID, http.StatusNotFound)
		return
	}
	if job.Status != models.StatusDone {
		g.respondJSON(w, http.StatusNotFound, &dto.StatusResponse{
			JobID:  job.ID,
			Status: string(job.Status),
			Error:  job.Error,
		})
		return
	}

	g.serveArtifact(w, traceID, "video/mp4", func() (io.ReadCloser, int64, error) {
		return g.artifacts.Open(jobID)
	})
}

func (g *Gateway) Thumb(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := pathJobID(r.URL.Path)
	if jobID == "" {
		g.handleError(w, "job_id is required", nil, traceID, http.StatusBadRequest)
		return
	}

	g.serveArtifact(w, traceID, "image/jpeg", func() (io.ReadCloser, int64, error) {
		return g.artifacts.OpenThumb(jobID)
	})
}

func (g *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (g *Gateway) serveArtifact(w http.ResponseWriter, traceID, contentType string, open func() (io.ReadCloser, int64, error)) {
	stream, size, err := open()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.handleError(w, "Artifact not found", err, traceID, http.StatusNotFound)
			return
		}
		g.handleError(w, "Failed to open artifact", err, traceID, http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	if _, err := io.Copy(w, stream); err != nil {
		g.logger.Warn("artifact stream interrupted", zap.String("trace_id", traceID), zap.Error(err))
	}
}

func (g *Gateway) decodeRequest(w http.ResponseWriter, r *http.Request, traceID string) (*models.EncodingRequest, bool) {
	var convReq dto.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&convReq); err != nil {
		g.handleError(w, "Invalid JSON body", err, traceID, http.StatusBadRequest)
		return nil, false
	}

	encReq, err := convReq.ToEncodingRequest(true)
	if err != nil {
		g.handleError(w, "Invalid request: "+err.Error(), err, traceID, http.StatusBadRequest)
		return nil, false
	}
	return encReq, true
}

func (g *Gateway) enqueueResponse(jobID string) *dto.EnqueueResponse {
	return &dto.EnqueueResponse{
		Status:    "queued",
		JobID:     jobID,
		StatusURL: "/status?job_id=" + jobID,
		ResultURL: "/file/" + jobID + ".mp4",
	}
}

func (g *Gateway) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	g.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (g *Gateway) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// pathJobID extracts the job ID from /file/<id>.mp4, /result/<id> and
// /thumb/<id>.jpg paths.
func pathJobID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".mp4")
	base = strings.TrimSuffix(base, ".jpg")
	if base == "." || base == "/" || strings.Contains(base, "..") {
		return ""
	}
	return base
}

var allowedUploadExts = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true,
	".webm": true, ".flv": true, ".wmv": true, ".m4v": true,
	".ts": true, ".mpg": true, ".mpeg": true, ".3gp": true,
}

// validateVideoUpload sniffs the content type and falls back to the
// extension when sniffing is ambiguous.
func validateVideoUpload(file multipart.File, header *multipart.FileHeader) error {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}

	contentType := http.DetectContentType(buffer[:n])
	if strings.HasPrefix(contentType, "video/") {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if allowedUploadExts[ext] {
		return nil
	}
	return errors.New("not a recognized video file")
}

// saveUpload writes the upload to destination. A failed write leaves
// no partial file behind.
func saveUpload(file multipart.File, destination string) error {
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}

	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(destination)
		return err
	}
	return out.Close()
}

func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 5 {
		return ".bin"
	}
	return ext
}

func roundMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}
