package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/download"
	"github.com/koopa0/artivault/internal/log"
	"github.com/koopa0/artivault/internal/pipeline"
	"github.com/koopa0/artivault/internal/preview"
	"github.com/koopa0/artivault/internal/sandbox"
)

// maxRequestBody caps request bodies at 32 MiB. Conversation exports
// are text; anything larger is not a legitimate request.
const maxRequestBody = 32 << 20

// ArtifactHandler serves the pipeline endpoints.
type ArtifactHandler struct {
	pipeline *pipeline.Pipeline
	runner   *sandbox.Runner   // optional
	renderer *preview.Renderer // optional
	trigger  download.Trigger  // optional
	store    *artifact.Store   // optional
	settings *Settings
	logger   log.Logger
}

// RegisterRoutes registers the artifact endpoints.
func (h *ArtifactHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/artifacts/download", h.Download)
	mux.HandleFunc("POST /api/artifacts/download-single", h.DownloadSingle)
	mux.HandleFunc("POST /api/artifacts/run", h.Run)
	mux.HandleFunc("POST /api/artifacts/preview", h.Preview)
}

// downloadOptions overrides settings for one request. Pointer fields
// distinguish "omitted" from "explicitly false".
type downloadOptions struct {
	Stitch           *bool  `json:"stitch,omitempty"`
	IncludeTimestamp *bool  `json:"include_timestamp,omitempty"`
	FlatStructure    *bool  `json:"flat_structure,omitempty"`
	SanitizeMode     string `json:"sanitize_mode,omitempty"`
}

type downloadRequest struct {
	HTML         string           `json:"html"`
	Conversation string           `json:"conversation,omitempty"`
	CacheOnly    bool             `json:"cache_only,omitempty"`
	Options      *downloadOptions `json:"options,omitempty"`
}

// downloadData is the payload of a successful download. Archive is
// base64-encoded by encoding/json; page-side clients decode it into a
// Blob and hand it to the browser's download API.
type downloadData struct {
	Archive []byte   `json:"archive,omitempty"`
	Path    string   `json:"path,omitempty"`
	Count   int      `json:"count"`
	Files   []string `json:"files"`
	Cached  int      `json:"cached,omitempty"`
}

// Download extracts artifacts from conversation markup and packages
// them into a ZIP. With a conversation ID and a cache available,
// previously cached fragments from earlier calls join the batch before
// stitching; the cache is cleared once the archive ships.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "html is required")
		return
	}

	ctx := r.Context()
	cfg := h.settings.Get()
	applyOptions(&cfg, req.Options)

	arts, err := h.pipeline.Extract(strings.NewReader(req.HTML))
	if err != nil {
		h.logger.Error("extraction failed", "error", err)
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "could not parse conversation markup")
		return
	}

	if req.CacheOnly {
		if h.store == nil || req.Conversation == "" {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest,
				"cache_only requires a conversation and a cache")
			return
		}
		for _, a := range arts {
			if err := h.store.Save(ctx, req.Conversation, a); err != nil {
				h.logger.Error("caching artifact failed", "id", a.ID, "error", err)
				writeError(w, http.StatusInternalServerError, CodeInternal, "caching failed")
				return
			}
		}
		writeSuccess(w, http.StatusOK, downloadData{Cached: len(arts)})
		return
	}

	if h.store != nil && req.Conversation != "" {
		cached, err := h.store.ListByConversation(ctx, req.Conversation)
		if err != nil {
			h.logger.Warn("reading artifact cache failed", "error", err)
		} else if len(cached) > 0 {
			arts = append(cached, arts...)
		}
	}

	res, err := h.pipeline.Package(ctx, arts, &cfg, req.Conversation)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	if h.store != nil && req.Conversation != "" {
		if err := h.store.DeleteByConversation(ctx, req.Conversation); err != nil {
			h.logger.Warn("clearing artifact cache failed", "error", err)
		}
	}

	writeSuccess(w, http.StatusOK, h.deliver(r, res, req.Conversation))
}

type downloadSingleRequest struct {
	Artifact artifact.Artifact `json:"artifact"`
	Options  *downloadOptions  `json:"options,omitempty"`
}

// DownloadSingle packages exactly one artifact.
func (h *ArtifactHandler) DownloadSingle(w http.ResponseWriter, r *http.Request) {
	var req downloadSingleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Artifact.Content) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "artifact content is required")
		return
	}
	if req.Artifact.CreatedAt.IsZero() {
		req.Artifact.CreatedAt = time.Now().UTC()
	}
	if req.Artifact.Type == "" {
		req.Artifact.Type = artifact.TypeCode
	}

	cfg := h.settings.Get()
	applyOptions(&cfg, req.Options)

	res, err := h.pipeline.PackageSingle(r.Context(), req.Artifact, &cfg)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.deliver(r, res, ""))
}

type runRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Run executes a code artifact in the sandbox. Runtime failures of the
// executed code are a successful response carrying the structured
// output; only transport-level problems produce an error envelope.
func (h *ArtifactHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, CodeInvalidRequest, "code execution is disabled")
		return
	}

	var req runRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "code is required")
		return
	}

	out, err := h.runner.Run(r.Context(), req.Code, req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

type previewRequest struct {
	Artifact artifact.Artifact `json:"artifact"`
}

type previewData struct {
	HTML string `json:"html"`
}

// Preview renders an artifact's content as embeddable HTML.
func (h *ArtifactHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, http.StatusServiceUnavailable, CodeInvalidRequest, "preview is disabled")
		return
	}

	var req previewRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	html, err := h.renderer.Render(req.Artifact)
	if err != nil {
		h.logger.Error("preview render failed", "type", req.Artifact.Type, "error", err)
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidRequest, "could not render preview")
		return
	}
	writeSuccess(w, http.StatusOK, previewData{HTML: html})
}

// deliver optionally persists the archive through the download trigger
// and builds the response payload. The archive blob is always included
// so the client can hand it to the browser without a second round trip.
func (h *ArtifactHandler) deliver(r *http.Request, res *pipeline.Result, conversation string) downloadData {
	data := downloadData{
		Archive: res.Archive,
		Count:   res.Count,
		Files:   res.Files,
	}

	if h.trigger != nil {
		name := "artifacts.zip"
		if conversation != "" {
			name = conversation + ".zip"
		}
		path, err := h.trigger.Download(r.Context(), res.Archive, name)
		if err != nil {
			h.logger.Warn("persisting archive failed", "error", err)
		} else {
			data.Path = path
		}
	}
	return data
}

// writePipelineError maps pipeline failures onto the envelope. An
// empty batch is a well-formed outcome, not a server fault: the client
// gets success=false with a stable code and HTTP 200.
func (h *ArtifactHandler) writePipelineError(w http.ResponseWriter, err error) {
	if errors.Is(err, artifact.ErrNoArtifacts) {
		writeJSON(w, http.StatusOK, Response{
			Success: false,
			Error:   "no artifacts found",
			Code:    CodeNoArtifacts,
		})
		return
	}
	h.logger.Error("pipeline failed", "error", err)
	writeError(w, http.StatusInternalServerError, CodeInternal, "packaging failed")
}

// applyOptions overlays per-request overrides on a settings copy.
func applyOptions(cfg *config.Config, opts *downloadOptions) {
	if opts == nil {
		return
	}
	if opts.Stitch != nil {
		cfg.Stitch = *opts.Stitch
	}
	if opts.IncludeTimestamp != nil {
		cfg.Naming.IncludeTimestamp = *opts.IncludeTimestamp
	}
	if opts.FlatStructure != nil {
		cfg.Naming.FlatStructure = *opts.FlatStructure
	}
	if opts.SanitizeMode != "" {
		cfg.Naming.SanitizeMode = opts.SanitizeMode
	}
}

// decodeRequest decodes a JSON body, writing the error envelope itself
// on failure. Unknown fields are rejected so client typos surface
// immediately.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
