package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github/newsanalyzer/api/models"

	"github.com/tmc/langchaingo/textsplitter"
	"google.golang.org/genai"
)

// ErrUpstream marks failures of the Gemini call itself: unreachable service,
// timeout, or a reply that is not the expected JSON.
var ErrUpstream = errors.New("article analysis failed upstream")

// promptChunkSize is the splitter chunk size used when bounding long articles.
const promptChunkSize = 2000

// AnalyzerService interface defines the article analysis operation.
type AnalyzerService interface {
	AnalyzeArticle(ctx context.Context, articleText string) (*models.AnalysisResponse, error)
}

// analyzerServiceImpl holds the dependencies it needs to do its job.
type analyzerServiceImpl struct {
	geminiClient  *genai.Client
	prompts       *PromptStore
	model         string
	timeout       time.Duration
	maxInputChars int
}

// NewAnalyzerService creates a new analyzer service instance.
func NewAnalyzerService(client *genai.Client, prompts *PromptStore, model string, timeout time.Duration, maxInputChars int) AnalyzerService {
	return &analyzerServiceImpl{
		geminiClient:  client,
		prompts:       prompts,
		model:         model,
		timeout:       timeout,
		maxInputChars: maxInputChars,
	}
}

// AnalyzeArticle implements AnalyzerService. It sends the article to Gemini
// with the analysis prompt and parses the JSON reply.
func (r *analyzerServiceImpl) AnalyzeArticle(ctx context.Context, articleText string) (*models.AnalysisResponse, error) {
	bounded := boundArticleText(articleText, r.maxInputChars)
	if len(bounded) < len(articleText) {
		log.Printf("SERVICE: Article truncated from %d to %d chars for analysis", len(articleText), len(bounded))
	}
	prompt := r.prompts.BuildPrompt(bounded)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log.Printf("SERVICE: Sending article to Gemini (%d prompt chars)...", len(prompt))
	result, err := r.geminiClient.Models.GenerateContent(callCtx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini api call failed: %v", ErrUpstream, err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from model", ErrUpstream)
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}

	response, err := parseAnalysis(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	log.Printf("SERVICE: Analysis complete (summary %d chars, %d countries, %d people)",
		len(response.Summary),
		len(response.GeopoliticalEntities.Countries),
		len(response.GeopoliticalEntities.People))
	return response, nil
}

// parseAnalysis decodes the model reply into an AnalysisResponse. Code fences
// and smart quotes are stripped first since models occasionally emit them
// even when asked for bare JSON.
func parseAnalysis(raw string) (*models.AnalysisResponse, error) {
	cleaned := sanitizeJSON(stripCodeFence(raw))

	var response models.AnalysisResponse
	if err := json.Unmarshal([]byte(cleaned), &response); err != nil {
		return nil, fmt.Errorf("could not parse model reply as JSON: %v (raw: %.200s)", err, raw)
	}
	if strings.TrimSpace(response.Summary) == "" {
		return nil, fmt.Errorf("model reply is missing a summary")
	}

	entities := &response.GeopoliticalEntities
	entities.Countries = dedupeList(entities.Countries)
	entities.Nationalities = dedupeList(entities.Nationalities)
	entities.People = dedupeList(entities.People)
	entities.Organizations = dedupeList(entities.Organizations)

	return &response, nil
}

// dedupeList removes exact duplicates, keeping first-occurrence order.
// The result is never nil so every list serializes as a JSON array.
func dedupeList(items []string) []string {
	deduped := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		deduped = append(deduped, item)
	}
	return deduped
}

// boundArticleText limits the article to maxChars, splitting at natural
// boundaries so the model sees whole paragraphs rather than a mid-sentence cut.
func boundArticleText(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(promptChunkSize),
		textsplitter.WithChunkOverlap(0),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		return truncateToRuneBoundary(text, maxChars)
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		if sb.Len()+len(chunk)+2 > maxChars {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(chunk)
	}
	if sb.Len() == 0 {
		return truncateToRuneBoundary(text, maxChars)
	}
	return sb.String()
}

// truncateToRuneBoundary cuts text to at most max bytes without splitting a
// multi-byte UTF-8 rune.
func truncateToRuneBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\n?(.*?)\\s*```$")

// stripCodeFence removes markdown code fences from LLM responses.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// sanitizeJSON replaces Unicode smart quotes that LLMs sometimes produce in
// JSON output with their ASCII equivalents.
func sanitizeJSON(s string) string {
	s = strings.ReplaceAll(s, "“", "\"") // left double quotation mark
	s = strings.ReplaceAll(s, "”", "\"") // right double quotation mark
	s = strings.ReplaceAll(s, "‘", "'")  // left single quotation mark
	s = strings.ReplaceAll(s, "’", "'")  // right single quotation mark
	return s
}
