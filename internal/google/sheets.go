package google

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

const (
	DefaultRange = "Sheet1!A1:E10"

	PlannerSpreadsheetName = "Nocturnal Content Planner"
	PlannerSheetTitle      = "Planner"
)

var PlannerHeader = []any{"ID", "Date", "Platform", "Topic", "Prompt", "Status"}

type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values"`
}

// ReadRange returns the cell values of rng (DefaultRange when empty).
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	if strings.TrimSpace(rng) == "" {
		rng = DefaultRange
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s", c.Endpoints.Sheets, url.PathEscape(spreadsheetID), url.PathEscape(rng))
	var out valueRange
	if err := c.do(ctx, "sheets_values_get", http.MethodGet, endpoint, nil, "", &out); err != nil {
		c.record("Sheets API", err)
		return nil, err
	}
	if out.Values == nil {
		out.Values = [][]any{}
	}
	return out.Values, nil
}

// AppendRows appends rows after the table found at rng, parsing input as the UI would.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	q := url.Values{}
	q.Set("valueInputOption", "USER_ENTERED")
	q.Set("insertDataOption", "INSERT_ROWS")
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?%s", c.Endpoints.Sheets, url.PathEscape(spreadsheetID), url.PathEscape(rng), q.Encode())
	return c.doJSON(ctx, "sheets_values_append", http.MethodPost, endpoint, valueRange{Values: rows}, nil)
}

// findPlannerSpreadsheet returns the id of the first matching spreadsheet, or "".
func (c *Client) findPlannerSpreadsheet(ctx context.Context, folderID string) (string, error) {
	query := fmt.Sprintf("name = %s and mimeType = '%s' and trashed = false", quote(PlannerSpreadsheetName), MimeSpreadsheet)
	if f := strings.TrimSpace(folderID); f != "" {
		query += " and " + quote(f) + " in parents"
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("fields", "files(id,name)")
	q.Set("pageSize", "1")
	files, err := c.listFiles(ctx, "drive_find_planner", q)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0].ID, nil
}

type sheetProperties struct {
	SheetID int64  `json:"sheetId,omitempty"`
	Title   string `json:"title"`
}

type sheetEntry struct {
	Properties sheetProperties `json:"properties"`
}

type spreadsheet struct {
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
	Properties    struct {
		Title string `json:"title"`
	} `json:"properties"`
	Sheets []sheetEntry `json:"sheets"`
}

func (c *Client) createPlannerSpreadsheet(ctx context.Context) (string, error) {
	var body spreadsheet
	body.Properties.Title = PlannerSpreadsheetName
	body.Sheets = []sheetEntry{{Properties: sheetProperties{Title: PlannerSheetTitle}}}

	var out spreadsheet
	if err := c.doJSON(ctx, "sheets_create", http.MethodPost, c.Endpoints.Sheets+"/spreadsheets", body, &out); err != nil {
		return "", err
	}
	if out.SpreadsheetID == "" {
		return "", fmt.Errorf("sheets_create returned no spreadsheetId")
	}
	return out.SpreadsheetID, nil
}

// ensurePlannerSheet adds the Planner tab to an existing spreadsheet when it
// is missing and reports whether it had to.
func (c *Client) ensurePlannerSheet(ctx context.Context, spreadsheetID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s?fields=%s", c.Endpoints.Sheets, url.PathEscape(spreadsheetID), url.QueryEscape("sheets.properties.title"))
	var got spreadsheet
	if err := c.do(ctx, "sheets_get", http.MethodGet, endpoint, nil, "", &got); err != nil {
		return false, err
	}
	for _, s := range got.Sheets {
		if s.Properties.Title == PlannerSheetTitle {
			return false, nil
		}
	}
	req := map[string]any{
		"requests": []any{
			map[string]any{"addSheet": map[string]any{"properties": map[string]any{"title": PlannerSheetTitle}}},
		},
	}
	endpoint = fmt.Sprintf("%s/spreadsheets/%s:batchUpdate", c.Endpoints.Sheets, url.PathEscape(spreadsheetID))
	if err := c.doJSON(ctx, "sheets_add_sheet", http.MethodPost, endpoint, req, nil); err != nil {
		return false, err
	}
	return true, nil
}

// EnsurePlannerSpreadsheet finds or creates the planner spreadsheet (inside
// folderID when given) and makes sure its Planner tab has a header row.
// Concurrent calls for the same owner and folder share one lookup within this
// process; two processes can still both create a spreadsheet.
func (c *Client) EnsurePlannerSpreadsheet(ctx context.Context, folderID string) (string, error) {
	key := c.owner + "|" + strings.TrimSpace(folderID)
	// The shared call must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	v, err, joined := c.group.Do(key, func() (any, error) {
		return c.ensurePlannerSpreadsheet(shared, folderID)
	})
	if err != nil {
		return "", err
	}
	if joined {
		log.Printf("[Google][Planner] ensure shared owner=%s folder=%s", c.owner, folderID)
	}
	return v.(string), nil
}

func (c *Client) ensurePlannerSpreadsheet(ctx context.Context, folderID string) (string, error) {
	id, err := c.findPlannerSpreadsheet(ctx, folderID)
	if err != nil {
		return "", err
	}
	needsHeader := false
	if id == "" {
		id, err = c.createPlannerSpreadsheet(ctx)
		if err != nil {
			return "", err
		}
		log.Printf("[Google][Planner] created spreadsheet id=%s folder=%s", id, folderID)
		if f := strings.TrimSpace(folderID); f != "" {
			if err := c.moveToFolder(ctx, id, f); err != nil {
				return "", err
			}
		}
		needsHeader = true
	} else {
		added, err := c.ensurePlannerSheet(ctx, id)
		if err != nil {
			return "", err
		}
		needsHeader = added
	}
	if needsHeader {
		if err := c.AppendRows(ctx, id, PlannerSheetTitle+"!A1", [][]any{PlannerHeader}); err != nil {
			return "", err
		}
	}
	return id, nil
}

// AppendPlannerRow writes one planner item as a row of the planner spreadsheet.
func (c *Client) AppendPlannerRow(ctx context.Context, folderID string, item models.PlannerItem) (string, error) {
	id, err := c.EnsurePlannerSpreadsheet(ctx, folderID)
	if err != nil {
		c.record("Sheets API", err)
		return "", err
	}
	row := []any{item.ID, item.Date, item.Platform, item.Topic, item.Prompt, item.Status}
	if err := c.AppendRows(ctx, id, PlannerSheetTitle+"!A1", [][]any{row}); err != nil {
		c.record("Sheets API", err)
		return "", err
	}
	return id, nil
}
