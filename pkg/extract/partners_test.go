package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/tributary-data/tributary/pkg/errors"
)

// writeSheet creates a spreadsheet with the given rows in a temp dir.
func writeSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "partners.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func partnerHeader() []interface{} {
	return []interface{}{
		"nom_librairie", "adresse", "code_postal", "ville",
		"contact_nom", "contact_email", "contact_telephone",
		"ca_annuel", "date_partenariat", "specialite",
	}
}

func TestPartnersExtractor(t *testing.T) {
	t.Run("streams data rows", func(t *testing.T) {
		path := writeSheet(t, [][]interface{}{
			partnerHeader(),
			{"Librairie du Canal", "3 Quai de Valmy", "75010", "Paris",
				"Marie Dupont", "a@b.com", "0612345678",
				"250000.50", "2021-03-15", "BD"},
			{"Pages et Plumes", "", "69001", "Lyon",
				"", "", "", "", "", ""},
		})

		e := NewPartnersExtractor(path, zaptest.NewLogger(t))
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, errs)
		require.Len(t, records, 2)

		first := records[0]
		assert.Equal(t, "Librairie du Canal", first.String("nom_librairie"))
		assert.Equal(t, "a@b.com", first.String("contact_email"))
		assert.Equal(t, "250000.50", first.String("ca_annuel"))

		// Short rows are padded with empty strings for every column.
		second := records[1]
		assert.True(t, second.Has("specialite"))
		assert.Equal(t, "", second.String("contact_email"))
	})

	t.Run("missing file is a config error", func(t *testing.T) {
		e := NewPartnersExtractor(filepath.Join(t.TempDir(), "absent.xlsx"), zaptest.NewLogger(t))
		_, err := e.Fetch(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("missing columns are a schema error", func(t *testing.T) {
		path := writeSheet(t, [][]interface{}{
			{"nom_librairie", "adresse", "ville"},
			{"Librairie du Canal", "3 Quai de Valmy", "Paris"},
		})

		e := NewPartnersExtractor(path, zaptest.NewLogger(t))
		_, err := e.Fetch(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	})

	t.Run("header matching ignores case and padding", func(t *testing.T) {
		header := []interface{}{
			" Nom_Librairie ", "ADRESSE", "code_postal", "ville",
			"contact_nom", "contact_email", "contact_telephone",
			"ca_annuel", "date_partenariat", "specialite",
		}
		path := writeSheet(t, [][]interface{}{
			header,
			{"Librairie du Canal", "3 Quai de Valmy", "75010", "Paris",
				"", "", "", "", "", ""},
		})

		e := NewPartnersExtractor(path, zaptest.NewLogger(t))
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, _ := drain(t, stream)
		require.Len(t, records, 1)
		assert.Equal(t, "Librairie du Canal", records[0].String("nom_librairie"))
	})

	t.Run("header-only sheet yields no records", func(t *testing.T) {
		path := writeSheet(t, [][]interface{}{partnerHeader()})

		e := NewPartnersExtractor(path, zaptest.NewLogger(t))
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, errs)
		assert.Empty(t, records)
	})
}

func TestHeaderIndex(t *testing.T) {
	t.Run("lists every missing column", func(t *testing.T) {
		_, err := headerIndex([]string{"nom_librairie"})
		require.Error(t, err)
		tributaryErr, ok := err.(*errors.Error)
		require.True(t, ok)
		missing := tributaryErr.Details["missing"].(string)
		assert.Contains(t, missing, "adresse")
		assert.Contains(t, missing, "specialite")
		assert.NotContains(t, missing, "nom_librairie")
	})

	t.Run("maps columns in any order", func(t *testing.T) {
		header := []string{
			"specialite", "date_partenariat", "ca_annuel",
			"contact_telephone", "contact_email", "contact_nom",
			"ville", "code_postal", "adresse", "nom_librairie",
		}
		index, err := headerIndex(header)
		require.NoError(t, err)
		assert.Equal(t, 9, index["nom_librairie"])
		assert.Equal(t, 0, index["specialite"])
	})
}
