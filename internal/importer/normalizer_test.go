package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractArticle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12345678 Bolt M8", "12345678"},
		{"  12345678 leading spaces", "12345678"},
		{"12345678", "12345678"},
		{"1234567 too short", ""},
		{"123456789 nine digits", ""},
		{"Bolt 12345678 not at start", ""},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractArticle(tc.in), "input %q", tc.in)
	}
}

func TestUsableRows(t *testing.T) {
	rows := usableRows([]Row{
		{Department: "200", Article: "11111111"},
		{Name: "22222222 from name cell"},
		{Department: "200", Name: "no code at all"},
	})

	assert.Len(t, rows, 2)
	assert.Equal(t, "11111111", rows[0].Article)
	assert.Equal(t, "22222222", rows[1].Article)
	assert.Equal(t, "unknown", rows[1].Department)
}
