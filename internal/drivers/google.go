package drivers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
	"golang.org/x/oauth2/google"
)

const googleCostPerPageCents = 6

// GoogleDriver calls Google Document AI's "document" processor.
type GoogleDriver struct {
	client      *http.Client
	processorURL string
	credsJSON   []byte
}

// NewGoogleDriver builds a driver authenticating with a service-account JSON
// key via golang.org/x/oauth2/google, the same credential-flow family the
// Azure driver uses for its client-credentials path.
func NewGoogleDriver(processorURL string, credsJSON []byte) *GoogleDriver {
	return &GoogleDriver{client: newHTTPClient(), processorURL: processorURL, credsJSON: credsJSON}
}

func (d *GoogleDriver) Kind() models.OCREngineType { return models.EngineGoogle }

type googleProcessRequest struct {
	RawDocument struct {
		Content  string `json:"content"`
		MimeType string `json:"mimeType"`
	} `json:"rawDocument"`
}

type googleProcessResponse struct {
	Document struct {
		Text  string `json:"text"`
		Pages []struct {
			Confidence float64 `json:"confidence"`
		} `json:"pages"`
	} `json:"document"`
}

func (d *GoogleDriver) Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error) {
	ctx, cancel := withTimeout(ctx, cfg.TimeoutSeconds)
	defer cancel()

	if len(d.credsJSON) == 0 {
		return nil, models.NewOCRError(models.CategoryConfiguration, "google", fmt.Errorf("no service account credentials configured"))
	}
	creds, err := google.CredentialsFromJSON(ctx, d.credsJSON, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, models.NewOCRError(models.CategoryConfiguration, "google", fmt.Errorf("parse credentials: %w", err))
	}
	tok, err := creds.TokenSource.Token()
	if err != nil {
		return nil, models.NewOCRError(models.CategoryTransient, "google", fmt.Errorf("fetch token: %w", err))
	}

	reqBody := googleProcessRequest{}
	reqBody.RawDocument.Content = base64.StdEncoding.EncodeToString(imageData)
	reqBody.RawDocument.MimeType = contentType

	var resp googleProcessResponse
	headers := map[string]string{"Authorization": "Bearer " + tok.AccessToken}
	if err := httpPost(ctx, d.client, d.processorURL+":process", headers, reqBody, &resp, "google"); err != nil {
		return nil, err
	}

	result := &models.OCRResult{
		EngineType:     models.EngineGoogle,
		Text:           resp.Document.Text,
		PagesProcessed: len(resp.Document.Pages),
	}
	if result.PagesProcessed == 0 {
		result.PagesProcessed = 1
	}
	var sum float64
	for _, p := range resp.Document.Pages {
		sum += p.Confidence
	}
	if len(resp.Document.Pages) > 0 {
		result.ConfidenceScore = sum / float64(len(resp.Document.Pages))
	}
	result.WordCount = countWords(result.Text)
	return result, nil
}

func (d *GoogleDriver) HealthCheck(ctx context.Context) error {
	if len(d.credsJSON) == 0 {
		return fmt.Errorf("google driver: no credentials configured")
	}
	return nil
}

func (d *GoogleDriver) EstimateCost(pageCount int) *int {
	cents := pageCount * googleCostPerPageCents
	return &cents
}

var _ contracts.Driver = (*GoogleDriver)(nil)
