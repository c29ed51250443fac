package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/pipeline"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Sheet1"

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a file extension or query value to a Format. An empty
// value selects CSV.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// MimeType returns the content type of files in format f.
func (f Format) MimeType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Result summarises a completed export.
type Result struct {
	Format   Format `json:"format"`
	Rows     int    `json:"rows"`
	Bytes    int64  `json:"bytes"`
	Path     string `json:"path,omitempty"`
	MimeType string `json:"mime_type"`
}

type Service struct {
	pipeline  *pipeline.Pipeline
	logger    *log.Logger
	exportDir string
	pageSize  int
	now       func() time.Time
}

type Option func(*Service)

func WithDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithLogger routes export and pipeline logs to logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(opts ...Option) *Service {
	service := &Service{
		logger:    log.Default(),
		exportDir: filepath.Join(os.TempDir(), "tablekit-exports"),
		pageSize:  1000,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	service.pipeline = pipeline.New(pipeline.WithLogger(service.logger))
	return service
}

// Write streams every row matching state, across all pages, to w. Headers
// are the labels of the visible columns and cells carry display values.
func (s *Service) Write(ctx context.Context, w io.Writer, def domain.Definition, state domain.ViewState, format Format) (Result, error) {
	columns := def.VisibleColumns(state)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.Label
	}

	var (
		sink rowWriter
		err  error
	)
	counter := &countingWriter{writer: bufio.NewWriterSize(w, 1<<16)}
	switch format {
	case FormatCSV:
		sink = newCSVWriter(counter)
	case FormatXLSX:
		sink, err = newXLSXWriter(counter)
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	defer sink.Close()

	if err := sink.WriteRow(headers); err != nil {
		return Result{}, fmt.Errorf("failed to write header: %w", err)
	}

	rows, err := s.walk(ctx, def, state, func(record domain.Record) error {
		values := make([]string, len(columns))
		for i, c := range columns {
			if c.Gate.ShouldBeHidden(&record) {
				continue
			}
			values[i] = formatValue(c.Display(record))
		}
		return sink.WriteRow(values)
	})
	if err != nil {
		return Result{}, err
	}

	if err := sink.Finish(); err != nil {
		return Result{}, fmt.Errorf("failed to finish %s export: %w", format, err)
	}
	if err := counter.writer.Flush(); err != nil {
		return Result{}, fmt.Errorf("failed to flush export: %w", err)
	}
	return Result{Format: format, Rows: rows, Bytes: counter.count, MimeType: format.MimeType()}, nil
}

// Export writes the rows matching state to a new file in the export
// directory. The file appears under its final name only once complete.
func (s *Service) Export(ctx context.Context, def domain.Definition, state domain.ViewState, format Format) (Result, error) {
	if err := s.ensureExportDirectory(); err != nil {
		return Result{}, err
	}
	tempFile, err := os.CreateTemp(s.exportDir, fmt.Sprintf("%s-*.%s.tmp", sanitizeFileComponent(def.Name()), format))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	result, err := s.Write(ctx, tempFile, def, state, format)
	if err != nil {
		return Result{}, err
	}
	if err := tempFile.Sync(); err != nil {
		return Result{}, fmt.Errorf("failed to sync export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close export file: %w", err)
	}

	finalPath := filepath.Join(s.exportDir, s.fileName(def, format))
	if err := os.Rename(tempPath, finalPath); err != nil {
		return Result{}, fmt.Errorf("failed to promote export file: %w", err)
	}
	cleanup = false
	result.Path = finalPath
	s.logger.Printf("[export] %s completed (rows=%d path=%s)", def.Name(), result.Rows, finalPath)
	return result, nil
}

// walk visits every record the pipeline composes for state, one page of
// pageSize at a time.
func (s *Service) walk(ctx context.Context, def domain.Definition, state domain.ViewState, visit func(domain.Record) error) (int, error) {
	q, composed := s.pipeline.Compose(def, state)
	for _, w := range composed.Skipped {
		s.logger.Printf("[export] %s: skipped %s", def.Name(), w)
	}

	rows := 0
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		batch, err := q.Fetch(ctx, s.pageSize, offset)
		if err != nil {
			return rows, fmt.Errorf("failed to fetch rows at offset %d: %w", offset, err)
		}
		for _, record := range batch {
			if err := visit(record); err != nil {
				return rows, fmt.Errorf("failed to write row %s: %w", record.ID, err)
			}
			rows++
		}
		if len(batch) < s.pageSize {
			return rows, nil
		}
		offset += s.pageSize
	}
}

func (s *Service) ensureExportDirectory() error {
	if strings.TrimSpace(s.exportDir) == "" {
		return errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure export directory: %w", err)
	}
	return nil
}

func (s *Service) fileName(def domain.Definition, format Format) string {
	base := sanitizeFileComponent(def.Name())
	return fmt.Sprintf("%s-%s.%s", base, s.now().UTC().Format("20060102T150405.000000000"), format)
}

type rowWriter interface {
	WriteRow(values []string) error
	Finish() error
	Close() error
}

type csvRowWriter struct {
	writer *csv.Writer
}

func newCSVWriter(w io.Writer) *csvRowWriter {
	return &csvRowWriter{writer: csv.NewWriter(w)}
}

func (c *csvRowWriter) WriteRow(values []string) error {
	return c.writer.Write(values)
}

func (c *csvRowWriter) Finish() error {
	c.writer.Flush()
	return c.writer.Error()
}

func (c *csvRowWriter) Close() error { return nil }

type xlsxRowWriter struct {
	out    io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

func newXLSXWriter(w io.Writer) (*xlsxRowWriter, error) {
	file := excelize.NewFile()
	stream, err := file.NewStreamWriter(sheetName)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open xlsx stream: %w", err)
	}
	return &xlsxRowWriter{out: w, file: file, stream: stream}, nil
}

func (x *xlsxRowWriter) WriteRow(values []string) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return x.stream.SetRow(cell, row)
}

func (x *xlsxRowWriter) Finish() error {
	if err := x.stream.Flush(); err != nil {
		return err
	}
	_, err := x.file.WriteTo(x.out)
	return err
}

func (x *xlsxRowWriter) Close() error {
	return x.file.Close()
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "export"
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	case []byte:
		return string(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
