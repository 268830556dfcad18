package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// exportRun uploads CSV and JSON snapshots of the rows written for one
// source. Export keys carry a UTC timestamp so snapshots from distinct
// runs never overwrite each other.
func (p *Pipeline) exportRun(ctx context.Context, source string, log *zap.Logger) error {
	rows := p.processed[source]
	if len(rows) == 0 {
		log.Debug("nothing to export")
		return nil
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")

	csvBody, err := rowsCSV(rows)
	if err != nil {
		return err
	}
	csvKey := fmt.Sprintf("exports/%s/%s.csv", source, stamp)
	if _, err := p.artifacts.PutExport(ctx, csvKey, "text/csv", csvBody); err != nil {
		return err
	}

	jsonBody, err := rowsJSON(rows)
	if err != nil {
		return err
	}
	jsonKey := fmt.Sprintf("exports/%s/%s.json", source, stamp)
	if _, err := p.artifacts.PutExport(ctx, jsonKey, "application/json", jsonBody); err != nil {
		return err
	}

	log.Info("run exported",
		zap.String("csv", csvKey),
		zap.String("json", jsonKey),
		zap.Int("rows", len(rows)))
	return nil
}

// rowsCSV renders rows as a CSV document with a header row. All rows in
// one export share a table, so the first row's columns serve as header.
func rowsCSV(rows []models.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(rows[0].Columns()); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to write export header")
	}
	for _, row := range rows {
		values := row.Values()
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = cell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to write export row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to flush export")
	}
	return buf.Bytes(), nil
}

// rowsJSON renders rows as a JSON array of column-keyed objects.
func rowsJSON(rows []models.Row) ([]byte, error) {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		cols, values := row.Columns(), row.Values()
		obj := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			obj[col] = values[i]
		}
		out = append(out, obj)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode export")
	}
	return body, nil
}

// cell renders one column value for CSV. NULLs render empty; slices join
// with a semicolon.
func cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case *float64:
		if val == nil {
			return ""
		}
		return strconv.FormatFloat(*val, 'f', -1, 64)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format("2006-01-02")
	case time.Time:
		return val.Format("2006-01-02")
	case []string:
		return strings.Join(val, ";")
	default:
		return fmt.Sprintf("%v", val)
	}
}
