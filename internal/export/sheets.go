package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
)

const sheetsBaseURL = "https://sheets.googleapis.com"

// SheetsConfig configures the Google Sheets sink.
type SheetsConfig struct {
	// SpreadsheetID is the target spreadsheet key.
	SpreadsheetID string
	// Worksheet is the sheet title rows are appended to.
	Worksheet string
	// SheetID is the numeric sheet id, needed to widen the basic filter.
	SheetID int64
	// Token is the externally provisioned OAuth bearer token.
	Token string
	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string
	// AppendsPerMinute paces requests below the API's write quota.
	AppendsPerMinute int
}

// SheetsSink appends summary rows to a Google Sheets worksheet and keeps
// the sheet's basic filter widened to cover every appended row.
type SheetsSink struct {
	cfg     SheetsConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logging.Logger
}

// NewSheetsSink creates the sink.
func NewSheetsSink(cfg SheetsConfig, log *logging.Logger) *SheetsSink {
	if cfg.BaseURL == "" {
		cfg.BaseURL = sheetsBaseURL
	}
	if cfg.AppendsPerMinute <= 0 {
		cfg.AppendsPerMinute = 50
	}

	interval := time.Minute / time.Duration(cfg.AppendsPerMinute)
	return &SheetsSink{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
	}
}

// Name implements Sink.
func (s *SheetsSink) Name() string { return "google-sheets" }

// Append implements Sink: one values-append call, then a filter update
// covering all rows so far. A quota rejection surfaces as SinkRateLimited
// for the adapter's backoff handling.
func (s *SheetsSink) Append(ctx context.Context, row []interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sheets append pacing: %w", err)
	}

	rowCount, err := s.appendRow(ctx, row)
	if err != nil {
		return err
	}

	if err := s.widenFilter(ctx, len(row), rowCount); err != nil {
		// The row landed; a failed filter update is logged, not fatal.
		s.log.WithError(err).Warn("could not widen sheet filter")
	}
	return nil
}

type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
	} `json:"updates"`
}

var updatedRowPattern = regexp.MustCompile(`(\d+)$`)

func (s *SheetsSink) appendRow(ctx context.Context, row []interface{}) (int, error) {
	url := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s!A1:append?valueInputOption=USER_ENTERED",
		s.cfg.BaseURL, s.cfg.SpreadsheetID, s.cfg.Worksheet)

	body := map[string]interface{}{"values": [][]interface{}{row}}

	var resp appendResponse
	if err := s.post(ctx, url, body, &resp); err != nil {
		return 0, err
	}

	// The updated range ("Wohnungen!A12:M12") tells us how far down the
	// sheet now reaches.
	match := updatedRowPattern.FindString(resp.Updates.UpdatedRange)
	if match == "" {
		return 0, nil
	}
	rowCount, _ := strconv.Atoi(match)
	return rowCount, nil
}

func (s *SheetsSink) widenFilter(ctx context.Context, columns, rowCount int) error {
	if rowCount <= 0 {
		return nil
	}

	url := fmt.Sprintf("%s/v4/spreadsheets/%s:batchUpdate", s.cfg.BaseURL, s.cfg.SpreadsheetID)
	body := map[string]interface{}{
		"requests": []interface{}{
			map[string]interface{}{
				"setBasicFilter": map[string]interface{}{
					"filter": map[string]interface{}{
						"range": map[string]interface{}{
							"sheetId":          s.cfg.SheetID,
							"startRowIndex":    0,
							"endRowIndex":      rowCount,
							"startColumnIndex": 0,
							"endColumnIndex":   columns,
						},
					},
				},
			},
		},
	}
	return s.post(ctx, url, body, nil)
}

func (s *SheetsSink) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sheets request encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sheets request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sheets request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewSinkRateLimitedError(s.Name(), fmt.Errorf("http %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheets request failed: http %d: %s", resp.StatusCode, detail)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("sheets response decode: %w", err)
		}
	}
	return nil
}
