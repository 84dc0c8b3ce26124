package store

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/deniro0912/gas-invoice/internal/logger"
)

// SheetsStore implements Store on a Google Spreadsheet.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetIDs      map[string]int64 // worksheet title -> sheet ID
	log           zerolog.Logger
}

var _ Store = (*SheetsStore)(nil)

// NewSheetsStore creates a store bound to the spreadsheet behind sheetURL.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS (file path) or
// GOOGLE_CREDENTIALS (inline JSON).
func NewSheetsStore(ctx context.Context, sheetURL string) (*SheetsStore, error) {
	const op = "NewSheetsStore"

	log := logger.WithComponent("store")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)

	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}

	return matches[1], nil
}

// EnsureSheets creates any missing worksheets with their header row and
// caches every worksheet's sheet ID for later structural updates.
func (s *SheetsStore) EnsureSheets(ctx context.Context, schemas []Schema) error {
	const op = "EnsureSheets"

	spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	existing := make(map[string]int64)
	for _, sheet := range spreadsheet.Sheets {
		existing[sheet.Properties.Title] = sheet.Properties.SheetId
	}

	for _, schema := range schemas {
		sheetID, ok := existing[schema.Sheet]
		if !ok {
			s.log.Info().Str("sheet", schema.Sheet).Msg("Creating missing worksheet")

			resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: []*sheets.Request{
					{AddSheet: &sheets.AddSheetRequest{
						Properties: &sheets.SheetProperties{Title: schema.Sheet},
					}},
				},
			}).Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("%s: failed to create worksheet %s: %w", op, schema.Sheet, err)
			}
			sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		}
		s.sheetIDs[schema.Sheet] = sheetID

		if err := s.ensureHeaders(ctx, schema); err != nil {
			return err
		}
	}

	return nil
}

// ensureHeaders writes the header row if the worksheet is empty.
func (s *SheetsStore) ensureHeaders(ctx context.Context, schema Schema) error {
	const op = "ensureHeaders"

	headerRange := fmt.Sprintf("%s!1:1", schema.Sheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers of %s: %w", op, schema.Sheet, err)
	}

	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", schema.Sheet).Msg("Writing header row")

	headers := make([]interface{}, len(schema.Headers))
	for i, h := range schema.Headers {
		headers[i] = h
	}

	_, err = s.svc.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{headers}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to write headers of %s: %w", op, schema.Sheet, err)
	}

	return nil
}

// ReadAll returns every data row of the worksheet (header excluded).
func (s *SheetsStore) ReadAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	const op = "SheetsStore.ReadAll"

	readRange := fmt.Sprintf("%s!2:100000", sheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, sheet, err)
	}

	s.log.Debug().
		Str("sheet", sheet).
		Int("rows", len(resp.Values)).
		Msg("Read all data rows")

	return resp.Values, nil
}

// Append adds one row after the last data row.
func (s *SheetsStore) Append(ctx context.Context, sheet string, row []interface{}) error {
	const op = "SheetsStore.Append"

	_, err := s.svc.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:Z", sheet),
		&sheets.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append to %s: %w", op, sheet, err)
	}

	return nil
}

// Update rewrites the data row at index. Data row 0 is spreadsheet row 2.
func (s *SheetsStore) Update(ctx context.Context, sheet string, index int, row []interface{}) error {
	const op = "SheetsStore.Update"

	writeRange := fmt.Sprintf("%s!%d:%d", sheet, index+2, index+2)
	_, err := s.svc.Spreadsheets.Values.Update(
		s.spreadsheetID,
		writeRange,
		&sheets.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to update row %d of %s: %w", op, index, sheet, err)
	}

	return nil
}

// Delete removes the data row at index via a DeleteDimension request,
// shifting later rows up.
func (s *SheetsStore) Delete(ctx context.Context, sheet string, index int) error {
	const op = "SheetsStore.Delete"

	sheetID, err := s.sheetID(ctx, sheet)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(index + 1), // zero-based grid index; +1 skips the header
					EndIndex:   int64(index + 2),
				},
			}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to delete row %d of %s: %w", op, index, sheet, err)
	}

	return nil
}

// sheetID resolves a worksheet title to its sheet ID, caching lookups.
func (s *SheetsStore) sheetID(ctx context.Context, sheet string) (int64, error) {
	if id, ok := s.sheetIDs[sheet]; ok {
		return id, nil
	}

	spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sh := range spreadsheet.Sheets {
		s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
	}

	id, ok := s.sheetIDs[sheet]
	if !ok {
		return 0, fmt.Errorf("worksheet %s not found", sheet)
	}
	return id, nil
}
