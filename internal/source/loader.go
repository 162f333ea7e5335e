// Package source loads the rule table artifact from a local file or a URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
)

// ErrNotFound is returned when a local rule table does not exist
var ErrNotFound = errors.New("data file not found")

// Document is a raw table plus where it came from
type Document struct {
	Location string
	Format   string
	Table    model.RawTable
}

// Loader reads rule tables
type Loader struct {
	format  string
	fetcher *Fetcher
	robots  *RobotsChecker
}

// NewLoader creates a loader from configuration
func NewLoader(src model.SourceConfig, httpCfg model.HTTPConfig) *Loader {
	f := NewFetcher(httpCfg.Timeout, httpCfg.UserAgent, httpCfg.MaxBodyBytes, httpCfg.InsecureTLS,
		httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)
	if httpCfg.MaxRetries > 0 {
		f.SetMaxRetries(httpCfg.MaxRetries)
	}

	l := &Loader{
		format:  strings.ToLower(src.Format),
		fetcher: f,
	}
	if httpCfg.RespectRobots {
		l.robots = NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout)
	}
	return l
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads and parses the table at location
func (l *Loader) Load(ctx context.Context, location string) (*Document, error) {
	if IsRemote(location) {
		return l.loadRemote(ctx, location)
	}
	return l.loadFile(ctx, location)
}

func (l *Loader) loadFile(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	format := l.resolveFormat(path, "")
	log.WithContext(ctx).Debug("loading rule table", "path", path, "format", format, "bytes", len(data))

	return l.parse(path, format, data)
}

func (l *Loader) loadRemote(ctx context.Context, rawURL string) (*Document, error) {
	if l.robots != nil {
		if err := l.robots.Check(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	res, err := l.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	format := l.resolveFormat(res.FinalURL, res.ContentType)
	log.WithContext(ctx).Debug("fetched rule table",
		"url", res.FinalURL, "format", format, "bytes", len(res.Body), "etag", res.ETag)

	return l.parse(res.FinalURL, format, res.Body)
}

func (l *Loader) resolveFormat(location, contentType string) string {
	if l.format != "" && l.format != FormatAuto {
		return l.format
	}
	// a .csv name or text/csv type does not pin the delimiter
	if format := DetectFormat(location, contentType); format != FormatCSV {
		return format
	}
	return FormatAuto
}

func (l *Loader) parse(location, format string, data []byte) (*Document, error) {
	table, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	if format == FormatAuto {
		format = sniff(data)
	}
	return &Document{Location: location, Format: format, Table: table}, nil
}
