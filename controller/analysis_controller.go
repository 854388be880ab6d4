package controller

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github/newsanalyzer/api/models"
	"github/newsanalyzer/api/services"
)

// minArticleLength is the minimum number of characters an article must have
// after trimming to be worth analyzing.
const minArticleLength = 50

// AnalysisController handles the HTTP requests for the analysis API. It
// depends on the AnalyzerService to perform the actual business logic.
type AnalysisController struct {
	analyzer    services.AnalyzerService
	maxFileSize int64
}

// NewAnalysisController is a constructor function that creates a new
// AnalysisController. This is called from main.go to inject the service
// dependency.
func NewAnalysisController(analyzer services.AnalyzerService, maxFileSize int64) *AnalysisController {
	return &AnalysisController{
		analyzer:    analyzer,
		maxFileSize: maxFileSize,
	}
}

// Analyze is the Gin handler for the POST /analyze endpoint. It accepts
// either a multipart upload under the field "file" or a JSON body with a
// "text" field, normalizes the input to plain text, and delegates to the
// analyzer service.
func (c *AnalysisController) Analyze(ctx *gin.Context) {
	articleText, ok := c.readArticleText(ctx)
	if !ok {
		return // response already written
	}

	if utf8.RuneCountInString(strings.TrimSpace(articleText)) < minArticleLength {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{
			Detail: fmt.Sprintf("Article text is too short (minimum %d characters required)", minArticleLength),
		})
		return
	}

	// We extract the standard context from Gin's context so a dropped client
	// connection cancels the in-flight Gemini call.
	response, err := c.analyzer.AnalyzeArticle(ctx.Request.Context(), articleText)
	if err != nil {
		log.Printf("CONTROLLER: Analysis failed: %v", err)
		if errors.Is(err, services.ErrUpstream) {
			ctx.JSON(http.StatusBadGateway, models.ErrorResponse{Detail: "The analysis service failed to process the article"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "An error occurred while processing the article"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// readArticleText normalizes the two accepted input shapes to plain text.
// On failure it writes the error response itself and returns ok=false.
func (c *AnalysisController) readArticleText(ctx *gin.Context) (string, bool) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		return c.readUploadedFile(ctx)
	}

	var req models.AnalysisRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Either file or text must be provided"})
		return "", false
	}
	log.Printf("CONTROLLER: Processing text input (%d chars)", len(req.Text))
	return req.Text, true
}

func (c *AnalysisController) readUploadedFile(ctx *gin.Context) (string, bool) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		// A multipart form without a file may still carry the article as a
		// plain form field.
		if text := ctx.PostForm("text"); strings.TrimSpace(text) != "" {
			log.Printf("CONTROLLER: Processing form text input (%d chars)", len(text))
			return text, true
		}
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Either file or text must be provided"})
		return "", false
	}

	if c.maxFileSize > 0 && fileHeader.Size > c.maxFileSize {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{
			Detail: fmt.Sprintf("File is too large (maximum %d bytes)", c.maxFileSize),
		})
		return "", false
	}

	log.Printf("CONTROLLER: Processing uploaded file: %s (%d bytes)", fileHeader.Filename, fileHeader.Size)

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Uploaded file could not be read"})
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Uploaded file could not be read"})
		return "", false
	}

	articleText, err := services.ExtractText(data, fileHeader.Filename)
	if err != nil {
		log.Printf("CONTROLLER: Extraction failed for %s: %v", fileHeader.Filename, err)
		if errors.Is(err, services.ErrUnsupportedFileType) {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Only .txt, .md, .docx and .pdf files are supported"})
			return "", false
		}
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Could not extract text from the uploaded file"})
		return "", false
	}
	return articleText, true
}
