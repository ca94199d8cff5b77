package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchPrintHTML pulls the self-contained print document for one CV from the
// API's internal endpoint. Only callers presenting the shared internal secret
// are allowed through.
func fetchPrintHTML(ctx context.Context, internalBaseURL string, cvID uint, secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("internal api secret missing")
	}

	internalBaseURL = strings.TrimRight(strings.TrimSpace(internalBaseURL), "/")
	if internalBaseURL == "" {
		return "", fmt.Errorf("internal api base url missing")
	}

	targetURL := fmt.Sprintf("%s/internal/cvs/%d/print", internalBaseURL, cvID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("build internal request: %w", err)
	}
	req.Header.Set("X-Internal-Secret", secret)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request print document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return "", fmt.Errorf("print document status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read print document: %w", err)
	}

	return string(data), nil
}
