package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"graphload/pkg/errors"
	"graphload/pkg/mapping"
)

// Parser converts one raw line into a field map according to the input's
// format. It is split out from the Reader so failure files, which carry raw
// lines from the original input, can be re-parsed the same way.
type Parser struct {
	format    string
	separator string
	columns   []string
}

// NewParser builds a line parser. For CSV inputs the column names come from
// the file header (passed by the reader) or from the input's declared
// columns.
func NewParser(input *mapping.Input, columns []string) *Parser {
	if len(columns) == 0 {
		columns = input.Columns
	}
	return &Parser{
		format:    input.Format,
		separator: input.FieldSeparator(),
		columns:   columns,
	}
}

// Parse converts a raw line into fields. Malformed lines fail with a parse
// error; the caller still has the raw line for failure capture.
func (p *Parser) Parse(line string) (map[string]any, error) {
	switch p.format {
	case mapping.FormatCSV:
		values := strings.Split(line, p.separator)
		if len(values) != len(p.columns) {
			return nil, errors.Newf(errors.ErrorTypeParse,
				"expected %d columns, got %d", len(p.columns), len(values))
		}
		fields := make(map[string]any, len(values))
		for i, column := range p.columns {
			fields[column] = values[i]
		}
		return fields, nil

	case mapping.FormatJSONL:
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(line), &fields); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeParse,
				"invalid json line")
		}
		return fields, nil

	default:
		return nil, errors.Newf(errors.ErrorTypeParse,
			"unsupported input format %q", p.format)
	}
}

// Reader streams records from one item. Offset always reports the number of
// bytes consumed from the start of the file, including any header line and
// blank lines, so that a fully read item's offset equals its size.
type Reader struct {
	path   string
	file   *os.File
	buf    *bufio.Reader
	parser *Parser
	offset int64
}

// Open prepares an item for reading at the given start offset. Offset zero
// reads from the beginning; a positive offset, taken from a resumed
// checkpoint, seeks straight back to where the previous run stopped. CSV
// headers are (re)read for their column names either way, but count toward
// the offset only when reading from the start.
func Open(item *Item, input *mapping.Input, startOffset int64) (*Reader, error) {
	file, err := os.Open(item.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input item: %w", err)
	}

	r := &Reader{
		path: item.Path,
		file: file,
		buf:  bufio.NewReader(file),
	}

	var columns []string
	if input.Format == mapping.FormatCSV && input.HasHeader() {
		header, err := r.buf.ReadString('\n')
		if err != nil && err != io.EOF {
			file.Close()
			return nil, fmt.Errorf("failed to read input header: %w", err)
		}
		r.offset = int64(len(header))
		columns = strings.Split(strings.TrimRight(header, "\r\n"), input.FieldSeparator())
	}
	r.parser = NewParser(input, columns)

	if startOffset > r.offset {
		if _, err := file.Seek(startOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to seek input item: %w", err)
		}
		r.buf.Reset(file)
		r.offset = startOffset
	}

	return r, nil
}

// Next returns the following record. Blank lines are consumed silently; a
// line that fails to parse comes back with its raw content and size set so
// the caller can record the failure and keep the offset accounting right.
// io.EOF reports the end of the item.
func (r *Reader) Next() (*Record, error) {
	for {
		line, err := r.buf.ReadString('\n')
		if len(line) > 0 {
			size := int64(len(line))
			r.offset += size

			raw := strings.TrimRight(line, "\r\n")
			if raw == "" {
				if err != nil {
					return nil, io.EOF
				}
				continue
			}

			fields, parseErr := r.parser.Parse(raw)
			if parseErr != nil {
				return &Record{Raw: raw, Size: size}, parseErr
			}
			return &Record{Raw: raw, Fields: fields, Size: size}, nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input item: %w", err)
		}
	}
}

// Offset returns the bytes consumed so far from the start of the file.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Path returns the backing file location.
func (r *Reader) Path() string {
	return r.path
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadHeader returns the column names of a CSV input's header line. The
// retry-failures path uses it to parse raw failure records whose file no
// longer carries the header.
func ReadHeader(path string, input *mapping.Input) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input for header: %w", err)
	}
	defer file.Close()

	header, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read input header: %w", err)
	}
	return strings.Split(strings.TrimRight(header, "\r\n"), input.FieldSeparator()), nil
}
