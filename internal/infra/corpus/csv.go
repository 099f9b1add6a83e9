package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// CSVLoader turns every data row of a CSV corpus into one Document.
type CSVLoader struct {
	source Source
	logger *slog.Logger
}

// NewCSVLoader constructs a loader over source.
func NewCSVLoader(source Source, logger *slog.Logger) *CSVLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVLoader{source: source, logger: logger.With("component", "corpus.csv")}
}

// Load reads the whole corpus. Any failure is a load_error.
func (l *CSVLoader) Load(ctx context.Context) ([]insight.Document, error) {
	name := l.source.Name()
	rc, err := l.source.Open(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeLoad, fmt.Sprintf("open corpus %s", name), err)
	}
	defer rc.Close()

	docs, err := Parse(rc, name)
	if err != nil {
		return nil, err
	}
	l.logger.Info("corpus loaded", "source", name, "documents", len(docs))
	return docs, nil
}

// Parse decodes CSV data. The header names the columns; each row renders as
// "column: value" lines in header order.
func Parse(r io.Reader, source string) ([]insight.Document, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Wrap(apperrors.CodeLoad, fmt.Sprintf("corpus %s is empty", source), nil)
		}
		return nil, apperrors.Wrap(apperrors.CodeLoad, fmt.Sprintf("read corpus header %s", source), err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var docs []insight.Document
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeLoad, fmt.Sprintf("malformed corpus %s at data row %d", source, row), err)
		}
		docs = append(docs, insight.Document{
			Row:     row,
			Source:  source,
			Content: renderRow(header, record),
		})
	}
	if len(docs) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeLoad, fmt.Sprintf("corpus %s has no data rows", source), nil)
	}
	return docs, nil
}

func renderRow(header, record []string) string {
	lines := make([]string, len(header))
	for i, column := range header {
		lines[i] = column + ": " + strings.TrimSpace(record[i])
	}
	return strings.Join(lines, "\n")
}
