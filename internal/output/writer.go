// Package output writes the goal reports into an output directory.
package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/model"
)

// Output file names.
const (
	FillMetricsFile     = "goal_2_metrics.json"
	RecommendationsFile = "goal_3_recommendations.json"
	QuantitiesFile      = "goal_4_common_quantities.json"
)

// WriteJSON writes the three goal files into dir, creating it if needed.
// All files are staged first and then renamed into place, so a failure
// while encoding or writing leaves no goal file behind.
func WriteJSON(dir string, r model.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "output: create dir %s", dir)
	}

	docs := []struct {
		name string
		v    any
	}{
		{FillMetricsFile, nonNil(r.FillMetrics)},
		{RecommendationsFile, nonNil(r.Recommendations)},
		{QuantitiesFile, nonNil(r.Quantities)},
	}

	staged := make([]string, 0, len(docs))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for _, d := range docs {
		data, err := encode(d.v)
		if err != nil {
			cleanup()
			return nil, eris.Wrapf(err, "output: encode %s", d.name)
		}
		tmp, err := stage(dir, d.name, data)
		if err != nil {
			cleanup()
			return nil, err
		}
		staged = append(staged, tmp)
	}

	paths := make([]string, 0, len(docs))
	for i, d := range docs {
		final := filepath.Join(dir, d.name)
		if err := os.Rename(staged[i], final); err != nil {
			staged = staged[i:]
			cleanup()
			return paths, eris.Wrapf(err, "output: rename %s", final)
		}
		paths = append(paths, final)
		zap.L().Info("output: saved", zap.String("path", final))
	}

	return paths, nil
}

// encode renders v as JSON indented by four spaces, with a trailing newline.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stage(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", eris.Wrapf(err, "output: stage %s", name)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrapf(err, "output: write %s", name)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrapf(err, "output: chmod %s", name)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck
		return "", eris.Wrapf(err, "output: close %s", name)
	}
	return f.Name(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
