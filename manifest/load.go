package manifest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a remote manifest fetch.
const DefaultFetchTimeout = 10 * time.Second

// maxDocumentSize caps a manifest document read into memory.
const maxDocumentSize = 16 << 20

// Loader reads manifest documents from local paths or http(s) URLs.
type Loader struct {
	Client  *http.Client
	Timeout time.Duration
	Logger  *slog.Logger
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the raw bytes of source.
func (l *Loader) Fetch(ctx context.Context, source string) ([]byte, error) {
	if !isRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		return data, nil
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	l.logger().Debug("fetching manifest", "url", source)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// Load fetches and parses the item list and, when flashcardSource is non-empty, the
// flashcard list.
func (l *Loader) Load(ctx context.Context, itemSource, flashcardSource string) (*Manifest, error) {
	data, err := l.Fetch(ctx, itemSource)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	items, err := ParseItems(data, l.logger())
	if err != nil {
		return nil, err
	}

	m := &Manifest{Items: items}
	if flashcardSource != "" {
		data, err := l.Fetch(ctx, flashcardSource)
		if err != nil {
			return nil, fmt.Errorf("load flashcards: %w", err)
		}
		if m.Flashcards, err = ParseFlashcards(data); err != nil {
			return nil, err
		}
	}

	for _, err := range m.Validate() {
		l.logger().Warn("manifest reference problem", "error", err)
	}
	l.logger().Info("manifest loaded", "items", len(m.Items), "images", len(m.Images()), "flashcards", len(m.Flashcards))
	return m, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}
