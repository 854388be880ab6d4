package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github/newsanalyzer/api/models"
	"github/newsanalyzer/api/services"
)

const sampleArticle = "The US and China agreed on tariffs. Presidents Biden and Xi met in Geneva to finalize the deal."

// stubAnalyzer returns canned results so controller tests run without Gemini.
type stubAnalyzer struct {
	response *models.AnalysisResponse
	err      error
	gotText  string
}

func (s *stubAnalyzer) AnalyzeArticle(ctx context.Context, articleText string) (*models.AnalysisResponse, error) {
	s.gotText = articleText
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func successResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		Summary: "The US and China reached a tariff agreement in Geneva.",
		GeopoliticalEntities: models.GeopoliticalEntities{
			Countries:     []string{"United States", "China"},
			Nationalities: []string{"American", "Chinese"},
			People:        []string{"Joe Biden", "Xi Jinping"},
			Organizations: []string{},
		},
	}
}

func newTestRouter(analyzer *stubAnalyzer, maxFileSize int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/analyze", NewAnalysisController(analyzer, maxFileSize).Analyze)
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postFile(t *testing.T, router *gin.Engine, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Error body is not valid JSON: %v (%s)", err, w.Body.String())
	}
	if body.Detail == "" {
		t.Error("Error body should carry a detail message")
	}
	return body
}

func TestAnalyzeJSONText(t *testing.T) {
	analyzer := &stubAnalyzer{response: successResponse()}
	router := newTestRouter(analyzer, 0)

	payload, _ := json.Marshal(models.AnalysisRequest{Text: sampleArticle})
	w := postJSON(router, string(payload))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if analyzer.gotText != sampleArticle {
		t.Errorf("Analyzer received %q, want the submitted text", analyzer.gotText)
	}

	var response models.AnalysisResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	if response.Summary == "" {
		t.Error("Expected a non-empty summary")
	}
	for name, list := range map[string][]string{
		"countries":     response.GeopoliticalEntities.Countries,
		"nationalities": response.GeopoliticalEntities.Nationalities,
		"people":        response.GeopoliticalEntities.People,
		"organizations": response.GeopoliticalEntities.Organizations,
	} {
		if list == nil {
			t.Errorf("Entity list %s missing from response", name)
		}
	}
	if response.GeopoliticalEntities.Countries[0] != "United States" {
		t.Errorf("Unexpected countries: %v", response.GeopoliticalEntities.Countries)
	}
}

func TestAnalyzeValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"empty text", `{"text":""}`},
		{"whitespace text", `{"text":"   "}`},
		{"not json", `plain text body`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			router := newTestRouter(&stubAnalyzer{response: successResponse()}, 0)
			w := postJSON(router, test.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d (%s)", w.Code, w.Body.String())
			}
			decodeError(t, w)
		})
	}
}

func TestAnalyzeShortText(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{response: successResponse()}, 0)

	w := postJSON(router, `{"text":"Too short."}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	body := decodeError(t, w)
	if !strings.Contains(body.Detail, "too short") {
		t.Errorf("Unexpected detail: %q", body.Detail)
	}
}

func TestAnalyzeFileUpload(t *testing.T) {
	analyzer := &stubAnalyzer{response: successResponse()}
	router := newTestRouter(analyzer, 0)

	w := postFile(t, router, "article.txt", []byte(sampleArticle))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if analyzer.gotText != sampleArticle {
		t.Errorf("Analyzer received %q, want extracted file text", analyzer.gotText)
	}
}

func TestAnalyzeFileUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		detail   string
	}{
		{"unsupported extension", "article.exe", []byte(sampleArticle), "are supported"},
		{"binary content", "article.txt", []byte{0x4D, 0x5A, 0x00, 0x01, 0xFF}, "Could not extract"},
		{"corrupt docx", "article.docx", []byte("not a zip archive at all"), "Could not extract"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			router := newTestRouter(&stubAnalyzer{response: successResponse()}, 0)
			w := postFile(t, router, test.filename, test.content)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d (%s)", w.Code, w.Body.String())
			}
			body := decodeError(t, w)
			if !strings.Contains(body.Detail, test.detail) {
				t.Errorf("Detail %q should contain %q", body.Detail, test.detail)
			}
		})
	}
}

func TestAnalyzeFileTooLarge(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{response: successResponse()}, 16)

	w := postFile(t, router, "article.txt", []byte(sampleArticle))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	body := decodeError(t, w)
	if !strings.Contains(body.Detail, "too large") {
		t.Errorf("Unexpected detail: %q", body.Detail)
	}
}

func TestAnalyzeMultipartWithoutFile(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{response: successResponse()}, 0)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	body := decodeError(t, w)
	if body.Detail != "Either file or text must be provided" {
		t.Errorf("Unexpected detail: %q", body.Detail)
	}
}

func TestAnalyzeMultipartTextField(t *testing.T) {
	analyzer := &stubAnalyzer{response: successResponse()}
	router := newTestRouter(analyzer, 0)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("text", sampleArticle); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if analyzer.gotText != sampleArticle {
		t.Errorf("Analyzer received %q, want the form text", analyzer.gotText)
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{
		err: services.ErrUpstream,
	}, 0)

	payload, _ := json.Marshal(models.AnalysisRequest{Text: sampleArticle})
	w := postJSON(router, string(payload))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 for upstream failure, got %d", w.Code)
	}
	decodeError(t, w)
}

func TestAnalyzeUnexpectedFailure(t *testing.T) {
	router := newTestRouter(&stubAnalyzer{err: errors.New("boom")}, 0)

	payload, _ := json.Marshal(models.AnalysisRequest{Text: sampleArticle})
	w := postJSON(router, string(payload))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 for unexpected failure, got %d", w.Code)
	}
	decodeError(t, w)
}
