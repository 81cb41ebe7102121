// Package loader discovers JSON, CSV, XLSX, and ZIP files under directory trees
// and parses them into flat, untyped records.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/model"
)

// Options configures which file kinds are loaded and how columns are renamed.
type Options struct {
	Aliases    Aliases
	ExtractZIP bool
	XLSX       bool
}

// SkippedFile records an input that contributed no records.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the concatenation of every record loaded from a set of directories.
type Result struct {
	Records []model.Record `json:"-"`
	Files   int            `json:"files"`
	Skipped []SkippedFile  `json:"skipped"`
}

// Loader reads record collections from directory trees.
type Loader struct {
	opts Options
}

// New creates a Loader with the given options.
func New(opts Options) *Loader {
	return &Loader{opts: opts}
}

// Load walks every directory and concatenates the records of all matching
// files. Missing directories and unparsable files are logged and skipped.
// The only error returned is context cancellation.
func (l *Loader) Load(ctx context.Context, dirs []string) (*Result, error) {
	res := &Result{Skipped: []SkippedFile{}}

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			zap.L().Warn("loader: directory not found, skipping", zap.String("dir", dir))
			res.Skipped = append(res.Skipped, SkippedFile{Path: dir, Reason: "directory not found"})
			continue
		}

		files, err := discover(ctx, dir, l.opts)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "loader: context cancelled")
			}
			l.loadFile(ctx, path, path, res)
		}
	}

	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, path, source string, res *Result) {
	kind := fileKind(path)
	if kind == kindZIP {
		l.loadZIP(ctx, path, res)
		return
	}

	records, err := parseFile(path, kind, source)
	if err != nil {
		zap.L().Warn("loader: could not read or parse file, skipping",
			zap.String("path", source),
			zap.Error(err),
		)
		res.Skipped = append(res.Skipped, SkippedFile{Path: source, Reason: err.Error()})
		return
	}

	if !l.opts.Aliases.Empty() {
		for _, rec := range records {
			l.opts.Aliases.Apply(rec)
		}
	}

	res.Files++
	res.Records = append(res.Records, records...)
	zap.L().Debug("loader: file loaded", zap.String("path", source), zap.Int("records", len(records)))
}

func (l *Loader) loadZIP(ctx context.Context, path string, res *Result) {
	tmp, err := os.MkdirTemp("", "claims-zip-*")
	if err != nil {
		zap.L().Warn("loader: could not create temp dir for archive", zap.String("path", path), zap.Error(err))
		res.Skipped = append(res.Skipped, SkippedFile{Path: path, Reason: err.Error()})
		return
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	// Nested archives are not expanded.
	keep := func(name string) bool {
		kind := fileKind(name)
		return kind != kindZIP && l.opts.accepts(kind)
	}
	members, err := extractMembers(path, tmp, keep)
	if err != nil {
		zap.L().Warn("loader: could not extract archive, skipping", zap.String("path", path), zap.Error(err))
		res.Skipped = append(res.Skipped, SkippedFile{Path: path, Reason: err.Error()})
		return
	}

	for _, m := range members {
		if ctx.Err() != nil {
			return
		}
		l.loadFile(ctx, m.Path, path+"!"+m.Name, res)
	}
}

func (o Options) accepts(kind int) bool {
	switch kind {
	case kindJSON, kindCSV:
		return true
	case kindXLSX:
		return o.XLSX
	case kindZIP:
		return o.ExtractZIP
	default:
		return false
	}
}

const (
	kindUnknown = iota
	kindJSON
	kindCSV
	kindXLSX
	kindZIP
)

func fileKind(path string) int {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return kindJSON
	case ".csv":
		return kindCSV
	case ".xlsx":
		return kindXLSX
	case ".zip":
		return kindZIP
	default:
		return kindUnknown
	}
}

func parseFile(path string, kind int, source string) ([]model.Record, error) {
	if kind == kindXLSX {
		return readXLSX(path, source)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open file")
	}
	defer f.Close() //nolint:errcheck

	switch kind {
	case kindJSON:
		return parseJSON(f, source)
	case kindCSV:
		return parseCSV(f, source)
	default:
		return nil, eris.Errorf("loader: unsupported file %s", path)
	}
}
