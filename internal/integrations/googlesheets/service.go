package googlesheets

import (
	"fmt"
	"strconv"
	"strings"

	"stockdesk/internal/importer"

	"google.golang.org/api/sheets/v4"
)

// SheetSource reads a stock export spreadsheet and turns it into the
// canonical row form the import planner consumes. The first row of the
// range is treated as a header; column synonyms are resolved here so
// the planner never sees spreadsheet quirks.
type SheetSource struct {
	sheetsService *sheets.Service
}

func NewSheetSource(sheetsService *sheets.Service) *SheetSource {
	return &SheetSource{sheetsService: sheetsService}
}

// Column synonyms seen in the exports we receive. Keys are lowercased
// header cells after trimming.
var headerSynonyms = map[string]string{
	"department":     "department",
	"dept":           "department",
	"wydzial":        "department",
	"group":          "group",
	"grupa":          "group",
	"article":        "article",
	"artykul":        "article",
	"name":           "name",
	"nazwa":          "name",
	"months_no_move": "months_no_move",
	"no move":        "months_no_move",
	"qty":            "qty",
	"quantity":       "qty",
	"ilosc":          "qty",
	"price":          "price",
	"cena":           "price",
	"sum":            "sum",
	"suma":           "sum",
}

func (s *SheetSource) FetchRows(spreadsheetID, readRange string) (importer.NormalizedTable, error) {
	resp, err := s.sheetsService.Spreadsheets.Values.Get(spreadsheetID, readRange).Do()
	if err != nil {
		return importer.NormalizedTable{}, fmt.Errorf("unable to read spreadsheet: %v", err)
	}

	return parseTable(resp.Values), nil
}

func parseTable(values [][]interface{}) importer.NormalizedTable {
	table := importer.NormalizedTable{Rows: []importer.Row{}}
	if len(values) < 2 {
		table.Warnings = append(table.Warnings, "spreadsheet range has no data rows")
		return table
	}

	columns := mapHeader(values[0])
	if _, ok := columns["name"]; !ok {
		if _, ok := columns["article"]; !ok {
			table.Warnings = append(table.Warnings, "no article or name column recognized in header")
			return table
		}
	}

	seen := make(map[string]struct{})
	for i := 1; i < len(values); i++ {
		raw := values[i]
		row := importer.Row{
			Department:   cellString(raw, columns, "department"),
			Group:        cellString(raw, columns, "group"),
			Article:      cellString(raw, columns, "article"),
			Name:         cellString(raw, columns, "name"),
			MonthsNoMove: cellFloat(raw, columns, "months_no_move"),
			Qty:          cellFloat(raw, columns, "qty"),
			Price:        cellFloat(raw, columns, "price"),
			Sum:          cellFloat(raw, columns, "sum"),
		}

		if row.Article == "" {
			row.Article = importer.ExtractArticle(row.Name)
		}
		if row.Article == "" && row.Name == "" {
			continue
		}

		if row.Article != "" {
			seen[row.Article] = struct{}{}
		}
		table.Rows = append(table.Rows, row)
	}

	table.Stats = importer.TableStats{
		RowsTotal:      len(table.Rows),
		ArticlesUnique: len(seen),
	}
	return table
}

func mapHeader(header []interface{}) map[string]int {
	columns := make(map[string]int)
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(toString(cell)))
		if canonical, ok := headerSynonyms[key]; ok {
			if _, taken := columns[canonical]; !taken {
				columns[canonical] = i
			}
		}
	}
	return columns
}

func cellString(row []interface{}, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(toString(row[idx]))
}

func cellFloat(row []interface{}, columns map[string]int, field string) *float64 {
	raw := cellString(row, columns, field)
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(strings.ReplaceAll(raw, " ", ""), ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
