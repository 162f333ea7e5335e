package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/rulelens/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	cfg := model.DefaultConfig().HTTP
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestLoader_LocalCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffChannel,WY event,Out\n~web,Click,\"a, b\"\napp,View\n"), 0o644))

	l := NewLoader(model.SourceConfig{Format: FormatAuto}, testHTTPConfig())
	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, doc.Format)
	assert.Equal(t, []string{"Channel", "WY event", "Out"}, doc.Table.Header)
	assert.Equal(t, [][]string{{"~web", "Click", "a, b"}, {"app", "View"}}, doc.Table.Records)
}

func TestLoader_DelimiterPinnedByFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("Channel;alias,WY event;v2;x\nweb,Click\n"), 0o644))

	doc, err := NewLoader(model.SourceConfig{Format: FormatCSV}, testHTTPConfig()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Channel;alias", "WY event;v2;x"}, doc.Table.Header)

	require.NoError(t, os.WriteFile(path, []byte("Channel;WY event\nweb;Click\n"), 0o644))
	doc, err = NewLoader(model.SourceConfig{Format: FormatAuto}, testHTTPConfig()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, doc.Format)
	assert.Equal(t, []string{"Channel", "WY event"}, doc.Table.Header)
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(model.SourceConfig{}, testHTTPConfig())

	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoader_Directory(t *testing.T) {
	l := NewLoader(model.SourceConfig{}, testHTTPConfig())

	_, err := l.Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLoader_ForcedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")
	require.NoError(t, os.WriteFile(path, []byte("A\tEvent\n1,2\tx\n"), 0o644))

	l := NewLoader(model.SourceConfig{Format: "TSV"}, testHTTPConfig())
	doc, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1,2", "x"}}, doc.Table.Records)
}

func TestLoader_RemoteHTMLWithRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/rules", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><body><table>
<tr><th>Channel</th><th>WY event</th></tr>
<tr><td>~web</td><td><b>Click</b></td></tr>
</table></body></html>`)
	})
	mux.HandleFunc("/private/rules.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "A,Event\n")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	l := NewLoader(model.SourceConfig{Format: FormatAuto}, testHTTPConfig())

	doc, err := l.Load(context.Background(), server.URL+"/rules")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, doc.Format)
	assert.Equal(t, []string{"Channel", "WY event"}, doc.Table.Header)
	assert.Equal(t, [][]string{{"~web", "Click"}}, doc.Table.Records)

	_, err = l.Load(context.Background(), server.URL+"/private/rules.csv")
	require.ErrorIs(t, err, ErrDisallowed)
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
		header []string
	}{
		{"csv", "A,B\n1,2\n", FormatCSV, []string{"A", "B"}},
		{"csv keeps semicolons in names", "A;x,B;y;z\n1,2\n", FormatCSV, []string{"A;x", "B;y;z"}},
		{"semicolon sniffed", "A;B\n1;2\n", FormatAuto, []string{"A", "B"}},
		{"tab sniffed", "A\tB\n1\t2\n", FormatAuto, []string{"A", "B"}},
		{"html sniffed", "  <table><tr><td>A</td><td>B</td></tr></table>", FormatAuto, []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.header, raw.Header)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(""), FormatCSV)
	require.ErrorIs(t, err, ErrNoTable)

	_, err = Parse([]byte("<html><body>nothing</body></html>"), FormatHTML)
	require.ErrorIs(t, err, ErrNoTable)

	_, err = Parse([]byte("A,B"), "xlsx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseHTML_CellText(t *testing.T) {
	raw, err := ParseHTML(strings.NewReader(`<table>
<thead><tr><th> In </th><th>Event</th></tr></thead>
<tbody><tr><td>a<br>b</td><td>x<table><tr><td>nested</td></tr></table></td></tr></tbody>
</table>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"In", "Event"}, raw.Header)
	require.Len(t, raw.Records, 1)
	assert.Equal(t, "a b", raw.Records[0][0])
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("rules.CSV", ""))
	assert.Equal(t, FormatTSV, DetectFormat("https://x/rules.tsv?download=1", ""))
	assert.Equal(t, FormatHTML, DetectFormat("https://x/export", "text/html; charset=utf-8"))
	assert.Equal(t, FormatCSV, DetectFormat("https://x/export.html", "text/csv"))
	assert.Equal(t, FormatAuto, DetectFormat("rules", ""))
}
