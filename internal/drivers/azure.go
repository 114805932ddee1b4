package drivers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
	"golang.org/x/oauth2/clientcredentials"
)

// azureCostPerPageCents is a static estimate; Azure Document Intelligence
// bills per page analyzed, not per byte.
const azureCostPerPageCents = 5

// AzureDriver calls Azure Document Intelligence's prebuilt-read/layout model.
type AzureDriver struct {
	client   *http.Client
	endpoint string
	tokenSrc interface {
		Token() (tokenStr string, err error)
	}
	apiKey string
}

type azureTokenAdapter struct{ cc *clientcredentials.Config }

func (a azureTokenAdapter) Token() (string, error) {
	t, err := a.cc.Token(context.Background())
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// NewAzureDriver builds a driver authenticating via OAuth2 client
// credentials when tenantID/clientID/clientSecret are set, falling back to a
// subscription-key header otherwise (the two auth modes Azure DI supports).
func NewAzureDriver(endpoint, apiKey, tenantID, clientID, clientSecret string) *AzureDriver {
	d := &AzureDriver{client: newHTTPClient(), endpoint: endpoint, apiKey: apiKey}
	if tenantID != "" && clientID != "" && clientSecret != "" {
		cc := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
			Scopes:       []string{"https://cognitiveservices.azure.com/.default"},
		}
		d.tokenSrc = azureTokenAdapter{cc: cc}
	}
	return d
}

func (d *AzureDriver) Kind() models.OCREngineType { return models.EngineAzure }

type azureAnalyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type azureAnalyzeResponse struct {
	AnalyzeResult struct {
		Content   string `json:"content"`
		Pages     []struct {
			PageNumber int `json:"pageNumber"`
		} `json:"pages"`
		Tables []struct {
			RowCount    int `json:"rowCount"`
			ColumnCount int `json:"columnCount"`
			Cells       []struct {
				RowIndex    int     `json:"rowIndex"`
				ColumnIndex int     `json:"columnIndex"`
				Content     string  `json:"content"`
				Confidence  float64 `json:"confidence"`
			} `json:"cells"`
		} `json:"tables"`
		KeyValuePairs []azureKeyValuePair `json:"keyValuePairs"`
	} `json:"analyzeResult"`
}

type azureKeyValuePair struct {
	Key struct {
		Content string `json:"content"`
	} `json:"key"`
	Value struct {
		Content string `json:"content"`
	} `json:"value"`
	Confidence float64 `json:"confidence"`
}

func (d *AzureDriver) Analyze(ctx context.Context, cfg models.EngineConfig, imageData []byte, contentType string) (*models.OCRResult, error) {
	ctx, cancel := withTimeout(ctx, cfg.TimeoutSeconds)
	defer cancel()

	headers := map[string]string{}
	if d.tokenSrc != nil {
		tok, err := d.tokenSrc.Token()
		if err != nil {
			return nil, models.NewOCRError(models.CategoryConfiguration, "azure", fmt.Errorf("fetch token: %w", err))
		}
		headers["Authorization"] = "Bearer " + tok
	} else if d.apiKey != "" {
		headers["Ocp-Apim-Subscription-Key"] = d.apiKey
	} else {
		return nil, models.NewOCRError(models.CategoryConfiguration, "azure", fmt.Errorf("no credentials configured"))
	}

	reqBody := azureAnalyzeRequest{Base64Source: base64.StdEncoding.EncodeToString(imageData)}
	var resp azureAnalyzeResponse
	url := d.endpoint + "/documentintelligence/documentModels/prebuilt-layout:analyze?api-version=2024-02-29-preview"
	if err := httpPost(ctx, d.client, url, headers, reqBody, &resp, "azure"); err != nil {
		return nil, err
	}

	result := &models.OCRResult{
		EngineType:     models.EngineAzure,
		Text:           resp.AnalyzeResult.Content,
		PagesProcessed: len(resp.AnalyzeResult.Pages),
	}
	if result.PagesProcessed == 0 {
		result.PagesProcessed = 1
	}
	result.ConfidenceScore = averageConfidence(resp.AnalyzeResult.KeyValuePairs)
	result.WordCount = countWords(result.Text)
	result.TableCount = len(resp.AnalyzeResult.Tables)
	for _, t := range resp.AnalyzeResult.Tables {
		var cells []models.Cell
		for _, c := range t.Cells {
			cells = append(cells, models.Cell{Row: c.RowIndex, Column: c.ColumnIndex, Text: c.Content, Confidence: c.Confidence})
		}
		result.Tables = append(result.Tables, models.Table{RowCount: t.RowCount, ColumnCount: t.ColumnCount, Cells: cells})
	}
	for _, kv := range resp.AnalyzeResult.KeyValuePairs {
		result.KeyValuePairs = append(result.KeyValuePairs, models.KeyValuePair{
			Key: kv.Key.Content, Value: kv.Value.Content, Confidence: kv.Confidence,
		})
	}
	return result, nil
}

func averageConfidence(kvs []azureKeyValuePair) float64 {
	if len(kvs) == 0 {
		return 0.85 // Azure layout responses without KV pairs still return usable text
	}
	var sum float64
	for _, kv := range kvs {
		sum += kv.Confidence
	}
	return sum / float64(len(kvs))
}

func (d *AzureDriver) HealthCheck(ctx context.Context) error {
	if d.apiKey == "" && d.tokenSrc == nil {
		return fmt.Errorf("azure driver: no credentials configured")
	}
	return nil
}

func (d *AzureDriver) EstimateCost(pageCount int) *int {
	cents := pageCount * azureCostPerPageCents
	return &cents
}

var _ contracts.Driver = (*AzureDriver)(nil)
