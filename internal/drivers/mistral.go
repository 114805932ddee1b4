package drivers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
)

const mistralCostPerPageCents = 3

// MistralDriver calls Mistral's Document AI OCR endpoint. Auth is a simple
// bearer API key, unlike Azure/Google's OAuth2 client-credential flow.
type MistralDriver struct {
	client *http.Client
	apiKey string
	url    string
}

func NewMistralDriver(apiKey, url string) *MistralDriver {
	if url == "" {
		url = "https://api.mistral.ai/v1/ocr"
	}
	return &MistralDriver{client: newHTTPClient(), apiKey: apiKey, url: url}
}

func (d *MistralDriver) Kind() models.OCREngineType { return models.EngineMistral }

type mistralOCRRequest struct {
	Model    string `json:"model"`
	Document struct {
		Type        string `json:"type"`
		DocumentURL string `json:"document_url,omitempty"`
		Base64      string `json:"base64,omitempty"`
	} `json:"document"`
}

type mistralOCRResponse struct {
	Pages []struct {
		Markdown   string  `json:"markdown"`
		Confidence float64 `json:"confidence"`
	} `json:"pages"`
}

func (d *MistralDriver) Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error) {
	ctx, cancel := withTimeout(ctx, cfg.TimeoutSeconds)
	defer cancel()

	if d.apiKey == "" {
		return nil, models.NewOCRError(models.CategoryConfiguration, "mistral", fmt.Errorf("no API key configured"))
	}

	reqBody := mistralOCRRequest{Model: "mistral-ocr-latest"}
	reqBody.Document.Type = "image"
	reqBody.Document.Base64 = base64.StdEncoding.EncodeToString(imageData)

	var resp mistralOCRResponse
	headers := map[string]string{"Authorization": "Bearer " + d.apiKey}
	if err := httpPost(ctx, d.client, d.url, headers, reqBody, &resp, "mistral"); err != nil {
		return nil, err
	}

	result := &models.OCRResult{EngineType: models.EngineMistral, PagesProcessed: len(resp.Pages)}
	if result.PagesProcessed == 0 {
		result.PagesProcessed = 1
	}
	var sum float64
	for _, p := range resp.Pages {
		result.Text += p.Markdown + "\n"
		sum += p.Confidence
	}
	if len(resp.Pages) > 0 {
		result.ConfidenceScore = sum / float64(len(resp.Pages))
	}
	result.WordCount = countWords(result.Text)
	return result, nil
}

func (d *MistralDriver) HealthCheck(ctx context.Context) error {
	if d.apiKey == "" {
		return fmt.Errorf("mistral driver: no API key configured")
	}
	return nil
}

func (d *MistralDriver) EstimateCost(pageCount int) *int {
	cents := pageCount * mistralCostPerPageCents
	return &cents
}

var _ contracts.Driver = (*MistralDriver)(nil)
