package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributary-data/tributary/pkg/models"
)

func TestRowsCSV(t *testing.T) {
	date := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
	revenue := 250000.5
	rows := []models.Row{
		&models.Partner{
			ID:              "ABC123",
			Name:            "Librairie du Canal",
			City:            "Paris",
			AnnualRevenue:   &revenue,
			PartnershipDate: &date,
		},
		&models.Partner{
			ID:   "DEF456",
			Name: "Pages, et Plumes",
			City: "Lyon",
		},
	}

	body, err := rowsCSV(rows)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "nom_librairie")
	assert.Contains(t, lines[1], "250000.5")
	assert.Contains(t, lines[1], "2021-03-15")
	// NULL columns render empty, commas in values stay quoted.
	assert.Contains(t, lines[2], `"Pages, et Plumes"`)
	assert.Contains(t, lines[2], ",,")
}

func TestRowsJSON(t *testing.T) {
	rows := []models.Row{
		&models.Quote{
			ID:             "ABC123",
			Text:           "To be",
			Author:         "Someone",
			Tags:           []string{"life"},
			TextNormalized: "To be",
			TagsNormalized: []string{"life"},
		},
	}

	body, err := rowsJSON(rows)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "ABC123", decoded[0]["id"])
	assert.Equal(t, "Someone", decoded[0]["author"])
}

func TestCell(t *testing.T) {
	f := 3.5
	date := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	var nilF *float64
	var nilT *time.Time

	assert.Equal(t, "", cell(nil))
	assert.Equal(t, "plain", cell("plain"))
	assert.Equal(t, "7", cell(7))
	assert.Equal(t, "3.5", cell(3.5))
	assert.Equal(t, "3.5", cell(&f))
	assert.Equal(t, "", cell(nilF))
	assert.Equal(t, "2020-01-02", cell(&date))
	assert.Equal(t, "", cell(nilT))
	assert.Equal(t, "a;b", cell([]string{"a", "b"}))
}
