package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/pishield/pishield/internal/application/analysis"
	apptips "github.com/pishield/pishield/internal/application/tips"
	domai "github.com/pishield/pishield/internal/domain/ai"
	"github.com/pishield/pishield/internal/domain/reports"
	"github.com/pishield/pishield/internal/middleware"
)

// RateLimits holds the per-route thresholds (requests per minute).
type RateLimits struct {
	Text  int // analyze-text
	Media int // extract-text, extract-video-metadata, analyze-multimodal, analyze-image
	Video int // analyze-video
}

// DefaultRateLimits matches the production thresholds.
func DefaultRateLimits() RateLimits { return RateLimits{Text: 10, Media: 5, Video: 3} }

type Router struct {
	analysisSvc *appanalysis.Service
	tipsSvc     *apptips.Service
	log         *zap.Logger
	visionModel string
}

// NewRouter wires the /api surface. verifier may be nil (auth disabled);
// checkers feed the health endpoint.
func NewRouter(
	analysisSvc *appanalysis.Service,
	tipsSvc *apptips.Service,
	verifier middleware.TokenVerifier,
	limiter *middleware.FixedWindowLimiter,
	limits RateLimits,
	checkers map[string]middleware.HealthChecker,
	log *zap.Logger,
) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{analysisSvc: analysisSvc, tipsSvc: tipsSvc, log: log}
	if analysisSvc != nil && analysisSvc.Vision != nil {
		r.visionModel = analysisSvc.Vision.ModelName()
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/health", middleware.HealthHandler(checkers))
		rt.Get("/metrics", middleware.MetricsHandler)
		rt.Get("/educational-tips", r.wrap(r.handleTips))
		rt.Get("/analysis-history/public", r.wrap(r.handlePublicHistory))

		rt.Group(func(g chi.Router) {
			g.Use(middleware.RequireAuth(verifier))
			g.Get("/analysis-history", r.wrap(r.handleHistory))
		})

		rt.Group(func(g chi.Router) {
			g.Use(middleware.OptionalAuth(verifier))
			g.With(middleware.RateLimit(limiter, limits.Text)).
				Post("/analyze-text", r.wrap(r.handleAnalyzeText))
			g.With(middleware.RateLimit(limiter, limits.Media)).
				Post("/extract-text", r.wrap(r.handleExtractText))
			g.With(middleware.RateLimit(limiter, limits.Media)).
				Post("/extract-video-metadata", r.wrap(r.handleExtractVideoMetadata))
			g.With(middleware.RateLimit(limiter, limits.Video)).
				Post("/analyze-video", r.wrap(r.handleAnalyzeVideo))
			g.With(middleware.RateLimit(limiter, limits.Media)).
				Post("/analyze-multimodal", r.wrap(r.handleAnalyzeMultimodal))
			g.With(middleware.RateLimit(limiter, limits.Media)).
				Post("/analyze-image-gemini", r.wrap(r.handleAnalyzeImage))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps typed errors onto the status taxonomy: 400 validation, 401 bad
// API key, 500 schema violation / upstream, 502 malformed upstream, 404 no rows.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var vErr *middleware.ValidationError
		switch {
		case errors.As(err, &vErr):
			middleware.WriteError(w, http.StatusBadRequest, vErr.Reason, "")
		case errors.Is(err, domai.ErrInvalidAPIKey):
			middleware.WriteError(w, http.StatusUnauthorized, "Invalid AI API key", err.Error())
		case errors.Is(err, reports.ErrMalformedResponse):
			middleware.WriteError(w, http.StatusBadGateway, "AI analysis service returned invalid response", err.Error())
		case errors.Is(err, reports.ErrSchemaViolation):
			middleware.WriteError(w, http.StatusInternalServerError, "AI analysis result failed validation", err.Error())
		case errors.Is(err, sql.ErrNoRows):
			middleware.WriteError(w, http.StatusNotFound, "not found", "")
		default:
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to process request", err.Error())
		}
	}
}

// analysisResponse echoes the validated report back to the caller.
type analysisResponse struct {
	ID                int64    `json:"id,omitempty"`
	CredibilityScore  int      `json:"credibilityScore"`
	Analysis          string   `json:"analysis"`
	Flags             []string `json:"flags"`
	Recommendations   []string `json:"recommendations"`
	Reasoning         string   `json:"reasoning"`
	Timestamp         string   `json:"timestamp"`
	AIModel           string   `json:"aiModel,omitempty"`
	Filename          string   `json:"filename,omitempty"`
	ExtractedText     string   `json:"extractedText,omitempty"`
	TechnicalFindings string   `json:"technicalFindings,omitempty"`
}

func reportResponse(rep *reports.Report, withID bool) analysisResponse {
	resp := analysisResponse{
		CredibilityScore: rep.CredibilityScore,
		Analysis:         rep.Analysis,
		Flags:            rep.Flags,
		Recommendations:  rep.Recommendations,
		Reasoning:        rep.Reasoning,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
	if withID {
		resp.ID = rep.ID
	}
	return resp
}

func callerID(req *http.Request) *string {
	if ident := middleware.IdentityFromContext(req.Context()); ident != nil {
		uid := ident.UID
		return &uid
	}
	return nil
}

// POST /api/analyze-text
func (r *Router) handleAnalyzeText(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &middleware.ValidationError{Reason: "invalid JSON body"}
	}
	if err := middleware.ValidateContent(body.Content); err != nil {
		return err
	}
	if err := middleware.ValidateContentType(body.ContentType); err != nil {
		return err
	}

	rep, err := r.analysisSvc.AnalyzeText(req.Context(), callerID(req), reports.ContentType(body.ContentType), body.Content)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()
	middleware.WriteJSON(w, http.StatusOK, reportResponse(rep, true))
	return nil
}

// POST /api/extract-text
func (r *Router) handleExtractText(w http.ResponseWriter, req *http.Request) error {
	upload, err := readUpload(req, "image", "image")
	if err != nil {
		return err
	}

	result, err := r.analysisSvc.ExtractText(req.Context(), domai.Media{MIMEType: upload.mimeType, Data: upload.data})
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"extractedText": result.Text,
		"confidence":    result.Confidence,
		"message":       result.Message,
	})
	return nil
}

// POST /api/extract-video-metadata
func (r *Router) handleExtractVideoMetadata(w http.ResponseWriter, req *http.Request) error {
	file, header, err := req.FormFile("video")
	if err != nil {
		return &middleware.ValidationError{Reason: "No video file provided"}
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if err := middleware.ValidateMIME(mimeType, "video"); err != nil {
		return err
	}
	if err := middleware.ValidateVideoSize(header.Size); err != nil {
		return err
	}

	meta := r.analysisSvc.ExtractVideoMetadata(header.Filename, mimeType, header.Size)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"metadata": meta,
		"message":  "Video metadata extraction completed (heuristic - integrate a demuxer for measured values)",
	})
	return nil
}

// POST /api/analyze-video
func (r *Router) handleAnalyzeVideo(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Filename string         `json:"filename"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &middleware.ValidationError{Reason: "invalid JSON body"}
	}
	if body.Filename == "" {
		return &middleware.ValidationError{Reason: "Video filename is required"}
	}
	if len(body.Metadata) == 0 {
		return &middleware.ValidationError{Reason: "Video metadata is required. Please extract metadata first."}
	}

	rep, err := r.analysisSvc.AnalyzeVideo(req.Context(), callerID(req), body.Filename, body.Metadata)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()
	middleware.WriteJSON(w, http.StatusOK, reportResponse(rep, false))
	return nil
}

// POST /api/analyze-multimodal
func (r *Router) handleAnalyzeMultimodal(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		return &middleware.ValidationError{Reason: "invalid multipart form"}
	}
	contentType := req.FormValue("contentType")
	if err := middleware.ValidateContentType(contentType); err != nil {
		return err
	}
	analysisPrompt := req.FormValue("analysisPrompt")

	var (
		textContent string
		filename    string
		attachment  *domai.Media
	)
	switch contentType {
	case "image", "video", "audio":
		upload, err := readUpload(req, contentType, contentType)
		if err != nil {
			return err
		}
		filename = upload.filename
		attachment = &domai.Media{MIMEType: upload.mimeType, Data: upload.data}
	default:
		textContent = req.FormValue("content")
		if err := middleware.ValidateContent(textContent); err != nil {
			return err
		}
	}

	rep, err := r.analysisSvc.AnalyzeMultimodal(req.Context(), callerID(req), reports.ContentType(contentType), analysisPrompt, textContent, filename, attachment)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()

	resp := reportResponse(rep, false)
	resp.AIModel = r.visionModel
	middleware.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// POST /api/analyze-image-gemini
func (r *Router) handleAnalyzeImage(w http.ResponseWriter, req *http.Request) error {
	upload, err := readUpload(req, "image", "image")
	if err != nil {
		return err
	}

	result, err := r.analysisSvc.AnalyzeImage(req.Context(), callerID(req), upload.filename, domai.Media{MIMEType: upload.mimeType, Data: upload.data})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()

	resp := reportResponse(result.Report, false)
	resp.AIModel = r.visionModel
	resp.Filename = upload.filename
	resp.ExtractedText = result.ExtractedText
	resp.TechnicalFindings = result.TechnicalFindings
	middleware.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// GET /api/analysis-history?limit=&offset=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	ident := middleware.IdentityFromContext(req.Context())
	if ident == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required", "")
		return nil
	}

	limit, offset := pagination(req)
	page, err := r.analysisSvc.History(req.Context(), ident.UID, middleware.ClampLimit(limit, 20, 100), middleware.ClampOffset(offset))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, page)
	return nil
}

// GET /api/analysis-history/public?limit=&offset=
func (r *Router) handlePublicHistory(w http.ResponseWriter, req *http.Request) error {
	limit, offset := pagination(req)
	page, err := r.analysisSvc.PublicHistory(req.Context(), middleware.ClampLimit(limit, 10, 50), middleware.ClampOffset(offset))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, page)
	return nil
}

// GET /api/educational-tips?category=
func (r *Router) handleTips(w http.ResponseWriter, req *http.Request) error {
	list, err := r.tipsSvc.List(req.Context(), req.URL.Query().Get("category"))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"tips": list})
	return nil
}

func pagination(req *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(req.URL.Query().Get("offset"))
	return limit, offset
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

// readUpload pulls one file field from a multipart request and checks its
// MIME family before any bytes cross a process boundary.
func readUpload(req *http.Request, field, family string) (*upload, error) {
	file, header, err := req.FormFile(field)
	if err != nil {
		return nil, &middleware.ValidationError{Reason: "No " + field + " file provided"}
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if err := middleware.ValidateMIME(mimeType, family); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &upload{filename: header.Filename, mimeType: mimeType, data: data}, nil
}
