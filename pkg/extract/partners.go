package extract

import (
	"context"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// partnerColumns are the columns every partner spreadsheet must carry.
// A header missing any of them is a systemic schema failure, fatal for
// the run.
var partnerColumns = []string{
	"nom_librairie",
	"adresse",
	"code_postal",
	"ville",
	"contact_nom",
	"contact_email",
	"contact_telephone",
	"ca_annuel",
	"date_partenariat",
	"specialite",
}

// PartnersExtractor reads partner records from the first sheet of a
// spreadsheet file. A missing file is a fatal configuration error;
// malformed individual rows are left to the transformer to drop.
type PartnersExtractor struct {
	path   string
	logger *zap.Logger
}

// NewPartnersExtractor creates a spreadsheet extractor for the given path.
func NewPartnersExtractor(path string, logger *zap.Logger) *PartnersExtractor {
	return &PartnersExtractor{
		path:   path,
		logger: logger.With(zap.String("extractor", "partners")),
	}
}

func (e *PartnersExtractor) Name() string { return "partners" }

// Fetch loads the first sheet and streams one raw record per data row.
// The header is validated before any record is emitted so a systemic
// schema failure aborts the run instead of producing a storm of drops.
func (e *PartnersExtractor) Fetch(ctx context.Context) (*Stream, error) {
	if _, err := os.Stat(e.path); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "partners file not found").WithDetail("path", e.path)
	}

	f, err := excelize.OpenFile(e.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open partners file").WithDetail("path", e.path)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "partners file has no sheets").WithDetail("path", e.path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read partners sheet").WithDetail("sheet", sheets[0])
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "partners sheet is empty").WithDetail("sheet", sheets[0])
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	records := make(chan models.RawRecord)
	errs := make(chan error)

	go func() {
		defer close(records)
		defer close(errs)

		for _, row := range rows[1:] {
			rec := make(models.RawRecord, len(index))
			for name, col := range index {
				if col < len(row) {
					rec[name] = strings.TrimSpace(row[col])
				} else {
					rec[name] = ""
				}
			}
			select {
			case records <- rec:
			case <-ctx.Done():
				return
			}
		}
		e.logger.Debug("partners sheet exhausted", zap.Int("rows", len(rows)-1))
	}()

	return &Stream{Records: records, Errs: errs}, nil
}

// headerIndex maps required column names to their position in the header
// row, failing with a schema error listing every missing column.
func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(partnerColumns))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, name := range partnerColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "partners file is missing required columns").
			WithDetail("missing", strings.Join(missing, ", "))
	}

	out := make(map[string]int, len(partnerColumns))
	for _, name := range partnerColumns {
		out[name] = index[name]
	}
	return out, nil
}
