package loader

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// discover returns every loadable file under root in lexical walk order.
func discover(ctx context.Context, root string, opts Options) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			zap.L().Warn("loader: cannot access path, skipping", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if opts.accepts(fileKind(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "loader: walk %s", root)
	}

	return files, nil
}
