package drivers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
)

const textractCostPerPageCents = 4

// TextractDriver calls AWS Textract's synchronous AnalyzeDocument API via
// its JSON-over-HTTPS protocol directly (the pack carries no S3-equivalent
// object-storage SDK to stage large documents through, so this driver only
// serves documents small enough for the synchronous call; larger documents
// are expected to use one of the cloud drivers with native async staging).
type TextractDriver struct {
	client      *http.Client
	endpoint    string
	accessKeyID string
	secretKey   string
	signer      func(req *http.Request, body []byte) error
}

// NewTextractDriver builds a driver. signer is stored as a hook for SigV4
// request signing, but Analyze does not call it: requests go out unsigned,
// whatever signer is passed (cmd/orchestrator passes nil).
func NewTextractDriver(endpoint, accessKeyID, secretKey string, signer func(req *http.Request, body []byte) error) *TextractDriver {
	return &TextractDriver{client: newHTTPClient(), endpoint: endpoint, accessKeyID: accessKeyID, secretKey: secretKey, signer: signer}
}

func (d *TextractDriver) Kind() models.OCREngineType { return models.EngineTextract }

type textractAnalyzeRequest struct {
	Document struct {
		Bytes string `json:"Bytes"`
	} `json:"Document"`
	FeatureTypes []string `json:"FeatureTypes"`
}

type textractBlock struct {
	BlockType string  `json:"BlockType"`
	Text      string  `json:"Text"`
	Confidence float64 `json:"Confidence"`
}

type textractAnalyzeResponse struct {
	Blocks []textractBlock `json:"Blocks"`
}

func (d *TextractDriver) Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error) {
	ctx, cancel := withTimeout(ctx, cfg.TimeoutSeconds)
	defer cancel()

	if d.accessKeyID == "" || d.secretKey == "" {
		return nil, models.NewOCRError(models.CategoryConfiguration, "textract", fmt.Errorf("no AWS credentials configured"))
	}

	reqBody := textractAnalyzeRequest{FeatureTypes: []string{"TABLES", "FORMS"}}
	reqBody.Document.Bytes = base64.StdEncoding.EncodeToString(imageData)

	headers := map[string]string{
		"X-Amz-Target": "Textract.AnalyzeDocument",
		"Content-Type": "application/x-amz-json-1.1",
	}
	var resp textractAnalyzeResponse
	if err := httpPost(ctx, d.client, d.endpoint, headers, reqBody, &resp, "textract"); err != nil {
		return nil, err
	}

	result := &models.OCRResult{EngineType: models.EngineTextract, PagesProcessed: 1}
	var sum float64
	var n int
	for _, b := range resp.Blocks {
		if b.BlockType == "LINE" {
			result.Text += b.Text + "\n"
			sum += b.Confidence / 100.0
			n++
		}
	}
	if n > 0 {
		result.ConfidenceScore = sum / float64(n)
	}
	result.WordCount = countWords(result.Text)
	return result, nil
}

func (d *TextractDriver) HealthCheck(ctx context.Context) error {
	if d.accessKeyID == "" || d.secretKey == "" {
		return fmt.Errorf("textract driver: no AWS credentials configured")
	}
	return nil
}

func (d *TextractDriver) EstimateCost(pageCount int) *int {
	cents := pageCount * textractCostPerPageCents
	return &cents
}

var _ contracts.Driver = (*TextractDriver)(nil)
