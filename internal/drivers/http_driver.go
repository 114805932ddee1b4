package drivers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kntaj/ocrflow/pkg/models"
)

// httpPost is the shared request/response plumbing every cloud driver uses:
// build a context-scoped request, set headers, decode JSON, and classify
// non-2xx responses the same way every time.
func httpPost(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, out any, engineName string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.NewOCRError(models.CategoryConfiguration, engineName, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.NewOCRError(models.CategoryConfiguration, engineName, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.NewOCRError(models.CategoryCancelled, engineName, err)
		}
		return models.NewOCRError(models.CategoryTransient, engineName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewOCRError(models.CategoryTransient, engineName, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 500 {
		return models.NewOCRError(models.CategoryTransient, engineName, fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return models.NewOCRError(models.CategoryTransient, engineName, fmt.Errorf("rate limited: %s", respBody))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return models.NewOCRError(models.CategoryConfiguration, engineName, fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	if resp.StatusCode >= 400 {
		return models.NewOCRError(models.CategoryPermanent, engineName, fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return models.NewOCRError(models.CategoryTransient, engineName, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// newHTTPClient builds the shared client used by every cloud driver, with a
// per-call timeout applied via the request context rather than the client
// itself so concurrent calls with different EngineConfig timeouts don't
// interfere with one another.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 0}
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		seconds = 300
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// countWords gives every driver the same whitespace-delimited word count to
// populate OCRResult.WordCount from, regardless of how each provider's wire
// format structures its recognized text.
func countWords(text string) int {
	return len(strings.Fields(text))
}
