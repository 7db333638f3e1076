package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pishield/pishield/internal/application"
	"github.com/pishield/pishield/internal/domain/ai"
	"github.com/pishield/pishield/internal/domain/faults"
	"github.com/pishield/pishield/internal/domain/media"
	"github.com/pishield/pishield/internal/domain/reports"
	"github.com/pishield/pishield/internal/infra/ai/prompt"
)

// MediaStore archives uploaded media blobs. Optional.
type MediaStore interface {
	Archive(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Service implements the analysis use-cases: assemble prompt, call exactly one
// AI backend, validate the response at the boundary, persist, return.
type Service struct {
	Reports reports.Repository
	Faults  faults.Repository // optional audit sink
	Text    ai.Completer      // OpenAI: text and video-metadata analysis
	Vision  ai.Vision         // Gemini: OCR, multimodal, native image vision
	OCR     ai.OCR            // Cloud Vision fallback for text extraction
	Meta    media.MetadataExtractor
	Archive MediaStore // optional
	Clock   application.Clock
	Log     *zap.Logger
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// AnalyzeText runs the text pipeline. Persistence failures surface to the caller.
func (s *Service) AnalyzeText(ctx context.Context, userID *string, contentType reports.ContentType, content string) (*reports.Report, error) {
	raw, err := s.Text.Complete(ctx, prompt.TextSystem(), prompt.TextUser(string(contentType), content))
	if err != nil {
		s.recordFault(ctx, userID, "analyze-text", "ai_call", err)
		return nil, err
	}

	payload, err := reports.ParsePayload(raw)
	if err != nil {
		s.recordFault(ctx, userID, "analyze-text", "parse", err)
		return nil, err
	}

	rep := payload.ToReport(userID, contentType, content, s.Clock.Now())
	id, err := s.Reports.Insert(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	rep.ID = id
	return rep, nil
}

// AnalyzeVideo analyzes a video's metadata record with the text backend.
// Persistence here is best-effort: a failed insert is logged and the AI result
// is still returned.
func (s *Service) AnalyzeVideo(ctx context.Context, userID *string, filename string, metadata map[string]any) (*reports.Report, error) {
	raw, err := s.Text.Complete(ctx, prompt.VideoSystem(), prompt.VideoUser(filename, metadata))
	if err != nil {
		s.recordFault(ctx, userID, "analyze-video", "ai_call", err)
		return nil, err
	}

	payload, err := reports.ParsePayload(raw)
	if err != nil {
		s.recordFault(ctx, userID, "analyze-video", "parse", err)
		return nil, err
	}

	rep := payload.ToReport(userID, reports.ContentTypeVideo, "Video: "+filename, s.Clock.Now())
	if id, err := s.Reports.Insert(ctx, rep); err != nil {
		s.logger().Warn("video analysis stored best-effort, insert failed", zap.Error(err))
		s.recordFault(ctx, userID, "analyze-video", "persist", err)
	} else {
		rep.ID = id
	}
	return rep, nil
}

// AnalyzeMultimodal sends content to the Gemini backend: inline media for
// image/video/audio submissions, text folded into the prompt otherwise.
func (s *Service) AnalyzeMultimodal(ctx context.Context, userID *string, contentType reports.ContentType, analysisPrompt, textContent, filename string, attachment *ai.Media) (*reports.Report, error) {
	raw, err := s.Vision.Generate(ctx, prompt.Multimodal(string(contentType), analysisPrompt, textContent), attachment)
	if err != nil {
		s.recordFault(ctx, userID, "analyze-multimodal", "ai_call", err)
		return nil, err
	}

	payload, err := reports.ParsePayload(raw)
	if err != nil {
		s.recordFault(ctx, userID, "analyze-multimodal", "parse", err)
		return nil, err
	}

	preview := textContent
	if preview == "" {
		preview = fmt.Sprintf("%s content analysis", contentType)
	}
	rep := payload.ToReport(userID, contentType, preview, s.Clock.Now())
	id, err := s.Reports.Insert(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	rep.ID = id

	s.archive(ctx, filename, attachment)
	return rep, nil
}

// ImageAnalysis is the extended result of native image vision.
type ImageAnalysis struct {
	Report            *reports.Report
	ExtractedText     string
	TechnicalFindings string
}

// AnalyzeImage runs Gemini's native vision over one image.
func (s *Service) AnalyzeImage(ctx context.Context, userID *string, filename string, attachment ai.Media) (*ImageAnalysis, error) {
	raw, err := s.Vision.Generate(ctx, prompt.ImageVision(), &attachment)
	if err != nil {
		s.recordFault(ctx, userID, "analyze-image", "ai_call", err)
		return nil, err
	}

	payload, err := reports.ParsePayload(raw)
	if err != nil {
		s.recordFault(ctx, userID, "analyze-image", "parse", err)
		return nil, err
	}

	rep := payload.ToReport(userID, reports.ContentTypeImage, "Image analysis: "+filename, s.Clock.Now())
	id, err := s.Reports.Insert(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	rep.ID = id

	s.archive(ctx, filename, &attachment)
	return &ImageAnalysis{
		Report:            rep,
		ExtractedText:     payload.ExtractedText,
		TechnicalFindings: payload.TechnicalFindings,
	}, nil
}

// ExtractedText is the OCR result shape.
type ExtractedText struct {
	Text       string
	Confidence float64
	Message    string
}

// ExtractText tries Gemini vision first, then falls back to the Cloud Vision
// API when Gemini errors or is not configured.
func (s *Service) ExtractText(ctx context.Context, attachment ai.Media) (*ExtractedText, error) {
	if s.Vision != nil {
		text, err := s.Vision.Generate(ctx, prompt.OCR(), &attachment)
		if err == nil {
			if text == "" {
				text = "No text detected in the image."
			}
			return &ExtractedText{
				Text:       text,
				Confidence: 0.95,
				Message:    "Text successfully extracted using Google Gemini Vision API",
			}, nil
		}
		s.logger().Warn("gemini ocr failed, falling back to cloud vision", zap.Error(err))
	}

	if s.OCR == nil {
		return nil, ai.ErrNotConfigured
	}
	text, confidence, err := s.OCR.ExtractText(ctx, attachment)
	if err != nil {
		s.recordFault(ctx, nil, "extract-text", "ai_call", err)
		return nil, err
	}
	if text == "" {
		text = "No text detected in the image."
	}
	return &ExtractedText{
		Text:       text,
		Confidence: confidence,
		Message:    "Text successfully extracted using Google Cloud Vision API",
	}, nil
}

// ExtractVideoMetadata derives the synthetic metadata record. Deterministic
// for identical (size, mime, filename) inputs apart from the creation date.
func (s *Service) ExtractVideoMetadata(filename, mimeType string, sizeBytes int64) media.Metadata {
	return s.Meta.Extract(filename, mimeType, sizeBytes, s.Clock.Now())
}

// History returns the caller's page, previews capped at the own-history limit.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) (*reports.HistoryPage, error) {
	items, err := s.Reports.HistoryByUser(ctx, userID, limit, offset, reports.OwnPreviewLimit)
	if err != nil {
		return nil, err
	}
	return historyPage(items, limit), nil
}

// PublicHistory returns anonymous rows only.
func (s *Service) PublicHistory(ctx context.Context, limit, offset int) (*reports.HistoryPage, error) {
	items, err := s.Reports.PublicHistory(ctx, limit, offset, reports.PublicPreviewLimit)
	if err != nil {
		return nil, err
	}
	return historyPage(items, limit), nil
}

func historyPage(items []*reports.HistoryItem, limit int) *reports.HistoryPage {
	if items == nil {
		items = []*reports.HistoryItem{}
	}
	return &reports.HistoryPage{
		Analyses: items,
		HasMore:  len(items) == limit,
	}
}

// archive is fire-and-forget: failures are logged, never fatal.
func (s *Service) archive(ctx context.Context, filename string, attachment *ai.Media) {
	if s.Archive == nil || attachment == nil {
		return
	}
	if _, err := s.Archive.Archive(ctx, filename, attachment.MIMEType, attachment.Data); err != nil {
		s.logger().Warn("media archive failed", zap.String("filename", filename), zap.Error(err))
	}
}

func (s *Service) recordFault(ctx context.Context, userID *string, endpoint, phase string, cause error) {
	s.logger().Error("analysis fault",
		zap.String("endpoint", endpoint),
		zap.String("phase", phase),
		zap.Error(cause),
	)
	if s.Faults == nil {
		return
	}
	uid := ""
	if userID != nil {
		uid = *userID
	}
	details, _ := json.Marshal(map[string]string{"error": cause.Error()})
	f := &faults.Fault{
		UserID:      uid,
		Endpoint:    endpoint,
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Faults.Save(ctx, f); err != nil {
		s.logger().Warn("fault audit write failed", zap.Error(err))
	}
}
