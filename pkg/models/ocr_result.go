package models

// KeyValuePair is one field the OCR engine extracted with a label.
type KeyValuePair struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Cell is one table cell, addressed by row/column.
type Cell struct {
	Row        int     `json:"row"`
	Column     int     `json:"column"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Table is a grid of Cells an engine detected on a page, plus the
// dimensions the provider reported for it (not just what's derivable from
// the cells the provider chose to return).
type Table struct {
	PageNumber  int    `json:"page_number"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	Cells       []Cell `json:"cells"`
}

// OCRResult is the normalized shape every driver returns, regardless of the
// wire format the underlying provider actually speaks. WordRecognitionRate
// is not carried here: the quality evaluator derives it from WordCount
// rather than trusting a driver-reported figure no provider actually sends.
type OCRResult struct {
	EngineType            OCREngineType  `json:"engine_type"`
	Text                  string         `json:"text"`
	ConfidenceScore       float64        `json:"confidence_score"`
	WordCount             int            `json:"word_count"`
	TableCount            int            `json:"table_count"`
	PagesProcessed        int            `json:"pages_processed"`
	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
	Tables                []Table        `json:"tables,omitempty"`
	KeyValuePairs         []KeyValuePair `json:"key_value_pairs,omitempty"`
	// RawResponse is what runstore.CompleteRun writes to the blob store. No
	// driver in internal/drivers sets it, so their results are completed
	// without a raw-response blob.
	RawResponse           map[string]any `json:"-"`
}
