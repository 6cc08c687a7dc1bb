package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cox-analyzer/internal/logger"
	"cox-analyzer/internal/models"
)

// ErrEmptyFile is returned for input without a header line.
var ErrEmptyFile = errors.New("no columns to parse from file")

// DatasetService reads delimited text into a models.Table and stores it in
// the session.
type DatasetService struct {
	session *models.Session
	logger  logger.Logger
}

func NewDatasetService(session *models.Session, log logger.Logger) *DatasetService {
	return &DatasetService{
		session: session,
		logger:  log,
	}
}

// Load parses r and replaces the session dataset with the result. On
// failure the session is reset so no stale dataset survives.
func (ds *DatasetService) Load(ctx context.Context, r io.Reader, name string) (*models.Table, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()
	table, err := ReadTable(r)
	if err != nil {
		ds.session.Reset()
		ds.logger.Error("dataset load failed", err, map[string]interface{}{
			"file": name,
		})
		return nil, err
	}

	ds.session.SetDataset(table, name)
	ds.logger.Info("dataset loaded", map[string]interface{}{
		"file":     name,
		"rows":     table.NumRows(),
		"columns":  table.NumCols(),
		"duration": time.Since(start).String(),
	})
	return table, nil
}

// ReadTable parses comma, semicolon or tab separated text. The separator is
// taken from the header line; the first record names the columns.
func ReadTable(r io.Reader) (*models.Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
		br.Discard(3)
	}

	header, err := peekHeader(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(header)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	names := records[0]
	for j, na := range names {
		na = strings.TrimSpace(na)
		if na == "" {
			na = fmt.Sprintf("Unnamed: %d", j)
		}
		names[j] = na
	}

	rows := records[1:]
	// Drop trailing records that are entirely blank.
	for len(rows) > 0 && blankRecord(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	return models.NewTable(names, rows)
}

func peekHeader(br *bufio.Reader) (string, error) {
	for n := 64; ; n *= 2 {
		b, err := br.Peek(n)
		if i := strings.IndexByte(string(b), '\n'); i >= 0 {
			return string(b[:i]), nil
		}
		if err != nil {
			if len(strings.TrimSpace(string(b))) == 0 {
				return "", ErrEmptyFile
			}
			return string(b), nil
		}
		if n >= br.Size() {
			return string(b), nil
		}
	}
}

// sniffDelimiter picks whichever of comma, semicolon and tab occurs most in
// the header line. Commas win ties.
func sniffDelimiter(header string) rune {
	best, count := ',', strings.Count(header, ",")
	for _, c := range []rune{';', '\t'} {
		if k := strings.Count(header, string(c)); k > count {
			best, count = c, k
		}
	}
	return best
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
