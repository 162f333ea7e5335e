package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/rulelens/internal/model"
)

// Supported table formats
const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatHTML = "html"
)

var (
	// ErrUnsupportedFormat is returned for unknown format names
	ErrUnsupportedFormat = errors.New("unsupported table format")
	// ErrNoTable is returned when a document holds no table or no header row
	ErrNoTable = errors.New("no table found")
)

const utf8BOM = "\ufeff"

// Parse reads a raw table in the given format. FormatAuto sniffs the content,
// including the delimiter of delimited text. FormatCSV is always comma-separated.
func Parse(data []byte, format string) (model.RawTable, error) {
	comma := ','
	if format == "" || format == FormatAuto {
		format = sniff(data)
		comma = sniffDelimiter(data)
	}

	switch format {
	case FormatCSV:
		return ParseDelimited(bytes.NewReader(data), comma)
	case FormatTSV:
		return ParseDelimited(bytes.NewReader(data), '\t')
	case FormatHTML:
		return ParseHTML(bytes.NewReader(data))
	default:
		return model.RawTable{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ParseDelimited reads a delimited text table whose first record is the header.
// Ragged records are accepted; normalization pads or trims them.
func ParseDelimited(r io.Reader, comma rune) (model.RawTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.RawTable{}, ErrNoTable
		}
		return model.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	table := model.RawTable{Header: header, Records: [][]string{}}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.RawTable{}, fmt.Errorf("read record %d: %w", len(table.Records)+1, err)
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// ParseHTML reads the first <table> of an HTML document. The first row is the
// header; cells are th or td elements with whitespace collapsed.
func ParseHTML(r io.Reader) (model.RawTable, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("parse html: %w", err)
	}

	tableNode := findElement(doc, "table")
	if tableNode == nil {
		return model.RawTable{}, ErrNoTable
	}

	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" && n != tableNode {
			return // nested tables belong to a cell
		}
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, strings.Join(strings.Fields(textContent(c)), " "))
				}
			}
			rows = append(rows, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tableNode)

	if len(rows) == 0 {
		return model.RawTable{}, ErrNoTable
	}

	return model.RawTable{Header: rows[0], Records: append([][]string{}, rows[1:]...)}, nil
}

// DetectFormat picks a format from a file name or URL path and an optional
// content type. It returns FormatAuto when neither is conclusive.
func DetectFormat(location, contentType string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "text/csv", "application/csv":
				return FormatCSV
			case "text/tab-separated-values":
				return FormatTSV
			case "text/html", "application/xhtml+xml":
				return FormatHTML
			}
		}
	}

	switch strings.ToLower(path.Ext(stripQuery(location))) {
	case ".csv":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatAuto
}

func sniff(data []byte) string {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte(utf8BOM)))
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return FormatHTML
	}
	return FormatCSV
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// header line, preferring comma on ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{'\t', ';'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	switch {
	case n.Type == html.TextNode:
		return n.Data
	case n.Type == html.ElementNode && n.Data == "br":
		return " "
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func stripQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}
