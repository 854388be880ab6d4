package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const defaultAnalysisPrompt = `You are a professional news analyst. For the given news article, produce:
1. A concise summary (2 to 3 sentences) capturing the main points and key developments.
2. All countries mentioned, using standardized names (e.g., "United States", "France").
3. All nationalities mentioned (e.g., "American", "French").
4. All notable people mentioned, using their names as written in the article.
5. All organizations mentioned (companies, institutions, governmental bodies).

If a category has no mentions, return an empty array for it.

Respond ONLY with valid JSON using standard ASCII double quotes. No other text:
{"summary":"...","geopolitical_entities":{"countries":[],"nationalities":[],"people":[],"organizations":[]}}`

// PromptStore serves the analysis prompt template. The template can be
// overridden by a file on disk and is hot-reloaded when that file changes.
type PromptStore struct {
	path string

	mu       sync.RWMutex
	template string
}

// NewPromptStore creates a store backed by the file at path. An empty path,
// a missing file or an empty file all fall back to the built-in template.
func NewPromptStore(path string) *PromptStore {
	s := &PromptStore{
		path:     path,
		template: defaultAnalysisPrompt,
	}
	if path != "" {
		if err := s.reload(); err != nil {
			log.Printf("PROMPT: Could not load template from %s, using built-in default: %v", path, err)
		}
	}
	return s
}

// Template returns the current prompt template.
func (s *PromptStore) Template() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.template
}

// BuildPrompt combines the template with the article text.
func (s *PromptStore) BuildPrompt(articleText string) string {
	return s.Template() + "\n\nArticle:\n" + articleText
}

func (s *PromptStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	template := strings.TrimSpace(string(data))
	if template == "" {
		return fmt.Errorf("template file %s is empty", s.path)
	}

	s.mu.Lock()
	s.template = template
	s.mu.Unlock()

	log.Printf("PROMPT: Loaded analysis template from %s (%d bytes)", s.path, len(template))
	return nil
}

// Watch starts a long-running process that re-reads the template whenever the
// file changes on disk. It blocks until the context is cancelled.
func (s *PromptStore) Watch(ctx context.Context) {
	if s.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create prompt watcher: %v", err)
		return
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself: editors often save by
	// writing a temp file and renaming it over the original.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		log.Printf("WATCHER ERROR: Failed to watch %s: %v", filepath.Dir(s.path), err)
		return
	}
	log.Printf("WATCHER: Watching prompt template: %s", s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.Printf("WATCHER: Prompt template changed: %s. Reloading...", event.Name)
				if err := s.reload(); err != nil {
					log.Printf("WATCHER WARN: Could not reload template, keeping previous version: %v", err)
				}
			}
			// On Remove/Rename the last good template stays in effect.

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WATCHER ERROR: %v", err)

		case <-ctx.Done():
			log.Println("WATCHER: Context cancelled, shutting down prompt watcher.")
			return
		}
	}
}
