package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appanalysis "github.com/pishield/pishield/internal/application/analysis"
	apptips "github.com/pishield/pishield/internal/application/tips"
	domai "github.com/pishield/pishield/internal/domain/ai"
	"github.com/pishield/pishield/internal/domain/media"
	"github.com/pishield/pishield/internal/domain/reports"
	"github.com/pishield/pishield/internal/domain/tips"
	"github.com/pishield/pishield/internal/middleware"
)

const validAIResponse = `{
  "credibilityScore": 65,
  "analysis": "Plausible but unsourced.",
  "flags": ["no sources cited"],
  "recommendations": ["look for primary sources"],
  "reasoning": "Key claims lack attribution."
}`

type fakeCompleter struct {
	resp  string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeCompleter) ModelName() string { return "fake-completer" }

type fakeVision struct {
	resp  string
	err   error
	calls int
	media *domai.Media
}

func (f *fakeVision) Generate(ctx context.Context, prompt string, attachment *domai.Media) (string, error) {
	f.calls++
	f.media = attachment
	return f.resp, f.err
}

func (f *fakeVision) ModelName() string { return "fake-vision" }

// memReports is an in-memory reports.Repository with the same ordering and
// preview semantics as the SQL adapters.
type memReports struct {
	mu        sync.Mutex
	rows      []*reports.Report
	nextID    int64
	insertErr error
}

func (m *memReports) Insert(ctx context.Context, rep *reports.Report) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	stored := *rep
	stored.ID = m.nextID
	m.rows = append(m.rows, &stored)
	return stored.ID, nil
}

func (m *memReports) HistoryByUser(ctx context.Context, userID string, limit, offset, previewLen int) ([]*reports.HistoryItem, error) {
	return m.page(func(r *reports.Report) bool {
		return r.UserID != nil && *r.UserID == userID
	}, limit, offset, previewLen), nil
}

func (m *memReports) PublicHistory(ctx context.Context, limit, offset, previewLen int) ([]*reports.HistoryItem, error) {
	return m.page(func(r *reports.Report) bool {
		return r.UserID == nil
	}, limit, offset, previewLen), nil
}

func (m *memReports) page(match func(*reports.Report) bool, limit, offset, previewLen int) []*reports.HistoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []*reports.Report
	for _, r := range m.rows {
		if match(r) {
			filtered = append(filtered, r)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID > filtered[j].ID })
	if offset >= len(filtered) {
		return nil
	}
	filtered = filtered[offset:]
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	items := make([]*reports.HistoryItem, 0, len(filtered))
	for _, r := range filtered {
		items = append(items, &reports.HistoryItem{
			ID:               r.ID,
			ContentType:      r.ContentType,
			CredibilityScore: r.CredibilityScore,
			ContentPreview:   reports.Truncate(r.ContentPreview, previewLen),
			CreatedAt:        r.CreatedAt,
		})
	}
	return items
}

type memTips struct {
	list []*tips.Tip
}

func (m *memTips) List(ctx context.Context, category string) ([]*tips.Tip, error) {
	if category == "" {
		return m.list, nil
	}
	var out []*tips.Tip
	for _, t := range m.list {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeVerifier struct {
	uid string
}

func (f fakeVerifier) Verify(ctx context.Context, idToken string) (*middleware.Identity, error) {
	if idToken != "valid-token" {
		return nil, errors.New("invalid token")
	}
	return &middleware.Identity{UID: f.uid, Email: f.uid + "@example.com"}, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type env struct {
	handler   http.Handler
	repo      *memReports
	completer *fakeCompleter
	vision    *fakeVision
}

func newEnv(t *testing.T, limits RateLimits) *env {
	t.Helper()
	repo := &memReports{}
	completer := &fakeCompleter{resp: validAIResponse}
	vision := &fakeVision{resp: validAIResponse}
	svc := &appanalysis.Service{
		Reports: repo,
		Text:    completer,
		Vision:  vision,
		Meta:    media.HeuristicExtractor{},
		Clock:   fixedClock{t: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	tipsSvc := &apptips.Service{Repo: &memTips{list: []*tips.Tip{
		{ID: 1, Category: "source-verification", Title: "Check the source", Content: "Trace claims to the original."},
		{ID: 2, Category: "manipulation-tactics", Title: "Watch for urgency", Content: "Manufactured urgency short-circuits judgement."},
	}}}
	limiter := middleware.NewFixedWindowLimiter().WithClock(func() time.Time {
		return time.Date(2026, 2, 1, 0, 0, 30, 0, time.UTC)
	})
	handler := NewRouter(svc, tipsSvc, fakeVerifier{uid: "user-1"}, limiter, limits, nil, nil)
	return &env{handler: handler, repo: repo, completer: completer, vision: vision}
}

func permissiveLimits() RateLimits { return RateLimits{Text: 1000, Media: 1000, Video: 1000} }

func postJSON(t *testing.T, h http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestAnalyzeText_Success(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "The moon landing was filmed in a studio, sources say.",
		"contentType": "post",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp analysisResponse
	decode(t, rec, &resp)
	require.Equal(t, int64(1), resp.ID)
	require.Equal(t, 65, resp.CredibilityScore)
	require.GreaterOrEqual(t, resp.CredibilityScore, 0)
	require.LessOrEqual(t, resp.CredibilityScore, 100)
	require.NotEmpty(t, resp.Analysis)
	require.NotEmpty(t, resp.Reasoning)

	require.Len(t, e.repo.rows, 1)
	require.Nil(t, e.repo.rows[0].UserID, "no token means anonymous")
}

func TestAnalyzeText_ShortContentRejectedBeforeAI(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "too short",
		"contentType": "text",
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, e.completer.calls, "AI backend must not be called")
	require.Empty(t, e.repo.rows, "nothing may be persisted")
}

func TestAnalyzeText_InvalidContentType(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "pdf",
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, e.completer.calls)
}

func TestAnalyzeText_PreviewTruncatedAtStorage(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	content := strings.Repeat("a", 5000)
	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     content,
		"contentType": "article",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, e.repo.rows, 1)
	require.Len(t, e.repo.rows[0].ContentPreview, reports.StoredPreviewLimit)
}

func TestAnalyzeText_OutOfRangeScoreIsServerError(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	e.completer.resp = `{"credibilityScore": 150, "analysis": "a", "flags": [], "recommendations": [], "reasoning": "r"}`

	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "text",
	}, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, e.repo.rows, "invalid result must not be persisted")
}

func TestAnalyzeText_NonJSONResponseIsBadGateway(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	e.completer.resp = "I am sorry, I cannot help with that."

	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "text",
	}, nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAnalyzeText_InvalidAPIKey(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	e.completer.err = fmt.Errorf("upstream: %w", domai.ErrInvalidAPIKey)
	e.completer.resp = ""

	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "text",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyzeText_AuthenticatedSubmissionKeepsUser(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "news",
	}, map[string]string{"Authorization": "Bearer valid-token"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, e.repo.rows, 1)
	require.NotNil(t, e.repo.rows[0].UserID)
	require.Equal(t, "user-1", *e.repo.rows[0].UserID)
}

func TestAnalyzeText_InvalidTokenRejected(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postJSON(t, e.handler, "/api/analyze-text", map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "text",
	}, map[string]string{"Authorization": "Bearer forged"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, e.completer.calls)
}

func TestAnalyzeText_RateLimited(t *testing.T) {
	e := newEnv(t, RateLimits{Text: 2, Media: 1000, Video: 1000})
	body := map[string]string{
		"content":     "long enough content to pass the length check",
		"contentType": "text",
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, postJSON(t, e.handler, "/api/analyze-text", body, nil).Code)
	}
	rec := postJSON(t, e.handler, "/api/analyze-text", body, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, 2, e.completer.calls, "rejected request must not reach the AI backend")
}

func TestAnalyzeVideo_RequiresMetadata(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postJSON(t, e.handler, "/api/analyze-video", map[string]any{
		"filename": "clip.mp4",
		"metadata": map[string]any{},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, e.handler, "/api/analyze-video", map[string]any{
		"metadata": map[string]any{"duration": "4:00"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeVideo_PersistFailureStillReturnsResult(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	e.repo.insertErr = errors.New("connection refused")

	rec := postJSON(t, e.handler, "/api/analyze-video", map[string]any{
		"filename": "clip.mp4",
		"metadata": map[string]any{"duration": "4:00", "resolution": "1920x1080"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp analysisResponse
	decode(t, rec, &resp)
	require.Equal(t, 65, resp.CredibilityScore)
}

func TestHistory_RequiresToken(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := get(t, e.handler, "/api/analysis-history", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistory_PaginationAndHasMore(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	uid := "user-1"
	for i := 0; i < 25; i++ {
		_, err := e.repo.Insert(context.Background(), &reports.Report{
			UserID:           &uid,
			ContentType:      reports.ContentTypeText,
			ContentPreview:   fmt.Sprintf("submission %d", i),
			CredibilityScore: 50,
			Analysis:         "a",
			Reasoning:        "r",
			CreatedAt:        time.Now(),
		})
		require.NoError(t, err)
	}
	auth := map[string]string{"Authorization": "Bearer valid-token"}

	var page reports.HistoryPage
	decode(t, get(t, e.handler, "/api/analysis-history", auth), &page)
	require.Len(t, page.Analyses, 20, "default page size")
	require.True(t, page.HasMore)
	require.Equal(t, int64(25), page.Analyses[0].ID, "newest first")

	decode(t, get(t, e.handler, "/api/analysis-history?limit=20&offset=20", auth), &page)
	require.Len(t, page.Analyses, 5)
	require.False(t, page.HasMore)

	decode(t, get(t, e.handler, "/api/analysis-history?limit=10&offset=100", auth), &page)
	require.Empty(t, page.Analyses)
	require.False(t, page.HasMore)

	decode(t, get(t, e.handler, "/api/analysis-history?limit=500", auth), &page)
	require.Len(t, page.Analyses, 25, "limit clamps to 100, not 500")
}

func TestPublicHistory_AnonymousRowsOnly(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	uid := "user-1"
	seed := []*reports.Report{
		{UserID: &uid, ContentType: reports.ContentTypeText, ContentPreview: "owned", CredibilityScore: 10, Analysis: "a", Reasoning: "r"},
		{UserID: nil, ContentType: reports.ContentTypePost, ContentPreview: "anonymous submission", CredibilityScore: 20, Analysis: "a", Reasoning: "r"},
	}
	for _, r := range seed {
		_, err := e.repo.Insert(context.Background(), r)
		require.NoError(t, err)
	}

	var page reports.HistoryPage
	decode(t, get(t, e.handler, "/api/analysis-history/public", nil), &page)
	require.Len(t, page.Analyses, 1)
	require.Equal(t, "anonymous submission", page.Analyses[0].ContentPreview)

	auth := map[string]string{"Authorization": "Bearer valid-token"}
	decode(t, get(t, e.handler, "/api/analysis-history", auth), &page)
	require.Len(t, page.Analyses, 1)
	require.Equal(t, "owned", page.Analyses[0].ContentPreview)
}

func TestExtractVideoMetadata_Multipart(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postFile(t, e.handler, "/api/extract-video-metadata", "video", "clip.mp4", "video/mp4", bytes.Repeat([]byte{0}, 2048), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Metadata media.Metadata `json:"metadata"`
		Message  string         `json:"message"`
	}
	decode(t, rec, &resp)
	require.Equal(t, "640x360", resp.Metadata.Resolution)
	require.Equal(t, "H.264", resp.Metadata.Codec)
	require.Equal(t, "clip.mp4", resp.Metadata.OriginalFileName)
}

func TestExtractVideoMetadata_WrongMIME(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postFile(t, e.handler, "/api/extract-video-metadata", "video", "doc.pdf", "application/pdf", []byte("%PDF"), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractText_UsesVision(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	e.vision.resp = "BREAKING NEWS headline"

	rec := postFile(t, e.handler, "/api/extract-text", "image", "shot.png", "image/png", []byte{0x89, 0x50}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ExtractedText string  `json:"extractedText"`
		Confidence    float64 `json:"confidence"`
	}
	decode(t, rec, &resp)
	require.Equal(t, "BREAKING NEWS headline", resp.ExtractedText)
	require.InDelta(t, 0.95, resp.Confidence, 0.001)
	require.NotNil(t, e.vision.media)
	require.Equal(t, "image/png", e.vision.media.MIMEType)
}

func TestAnalyzeMultimodal_TextBranch(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postForm(t, e.handler, "/api/analyze-multimodal", map[string]string{
		"contentType": "text",
		"content":     "a claim that is long enough to analyze",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp analysisResponse
	decode(t, rec, &resp)
	require.Equal(t, "fake-vision", resp.AIModel)
	require.Len(t, e.repo.rows, 1)
	require.Nil(t, e.vision.media, "text branch sends no attachment")
}

func TestAnalyzeMultimodal_ImageBranch(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := postFile(t, e.handler, "/api/analyze-multimodal", "image", "meme.jpg", "image/jpeg", []byte{0xff, 0xd8}, map[string]string{
		"contentType": "image",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, e.vision.media)
	require.Equal(t, "image/jpeg", e.vision.media.MIMEType)
	require.Len(t, e.repo.rows, 1)
	require.Equal(t, "image content analysis", e.repo.rows[0].ContentPreview)
}

func TestAnalyzeImage_ReturnsVisionExtras(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	e.vision.resp = `{"credibilityScore": 30, "analysis": "a", "flags": [], "recommendations": [], "reasoning": "r", "extractedText": "FAKE QUOTE", "technicalFindings": "resampling artifacts"}`

	rec := postFile(t, e.handler, "/api/analyze-image-gemini", "image", "screenshot.png", "image/png", []byte{0x89}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp analysisResponse
	decode(t, rec, &resp)
	require.Equal(t, 30, resp.CredibilityScore)
	require.Equal(t, "FAKE QUOTE", resp.ExtractedText)
	require.Equal(t, "resampling artifacts", resp.TechnicalFindings)
	require.Equal(t, "screenshot.png", resp.Filename)
}

func TestEducationalTips(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	var resp struct {
		Tips []*tips.Tip `json:"tips"`
	}
	decode(t, get(t, e.handler, "/api/educational-tips", nil), &resp)
	require.Len(t, resp.Tips, 2)

	decode(t, get(t, e.handler, "/api/educational-tips?category=source-verification", nil), &resp)
	require.Len(t, resp.Tips, 1)
	require.Equal(t, "Check the source", resp.Tips[0].Title)
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t, permissiveLimits())
	rec := get(t, e.handler, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status"`)
}

// postForm submits plain multipart form fields without a file.
func postForm(t *testing.T, h http.Handler, path string, fields map[string]string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// postFile submits one file part with an explicit Content-Type plus extra fields.
func postFile(t *testing.T, h http.Handler, path, field, filename, mimeType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	hdr.Set("Content-Type", mimeType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
