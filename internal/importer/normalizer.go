package importer

import (
	"errors"
	"regexp"
)

// ErrNoArticles is the distinguished condition for an import table with
// zero resolvable article identifiers. The planner refuses to build a
// plan on it, so an empty or corrupted file can never wipe the ledger
// through deactivation.
var ErrNoArticles = errors.New("no article identifiers found in import table")

// Row is one canonical, already-normalized import row. Spreadsheet
// parsing and column-synonym resolution happen in an external
// collaborator; this package only consumes its output. Optional numeric
// fields are pointers: nil means the column was absent.
type Row struct {
	Department   string   `json:"department"`
	Group        string   `json:"group"`
	Article      string   `json:"article"`
	Name         string   `json:"name"`
	MonthsNoMove *float64 `json:"months_no_move,omitempty"`
	Qty          *float64 `json:"qty,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Sum          *float64 `json:"sum,omitempty"`
}

// TableStats carries normalization aggregates alongside the rows.
type TableStats struct {
	RowsTotal      int `json:"rows_total"`
	ArticlesUnique int `json:"articles_unique"`
}

// NormalizedTable is the product of the normalization collaborator.
type NormalizedTable struct {
	Rows     []Row      `json:"rows"`
	Warnings []string   `json:"warnings,omitempty"`
	Stats    TableStats `json:"stats"`
}

// Articles are 8-digit codes by warehouse convention when extracted from
// free text; the ledger key itself accepts arbitrary non-empty strings.
var articleRe = regexp.MustCompile(`^\s*(\d{8})\b`)

// ExtractArticle pulls an 8-digit article code from the start of a free
// text value, typically an item name cell. Returns "" when none is
// present.
func ExtractArticle(text string) string {
	m := articleRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
