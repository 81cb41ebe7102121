package output

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/claims-cli/internal/model"
)

// FillMetricsParquetFile is the optional columnar copy of the fill metrics.
const FillMetricsParquetFile = "goal_2_metrics.parquet"

// WriteFillMetricsParquet writes the fill metrics to dir as a Snappy
// compressed Parquet file and returns its path.
func WriteFillMetricsParquet(dir string, metrics []model.FillMetric) (string, error) {
	path := filepath.Join(dir, FillMetricsParquetFile)
	file, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "parquet: create fill metrics")
	}

	writer := parquet.NewGenericWriter[model.FillMetric](file,
		parquet.Compression(&parquet.Snappy),
	)
	if _, err := writer.Write(metrics); err != nil {
		writer.Close() //nolint:errcheck
		file.Close()   //nolint:errcheck
		return "", eris.Wrap(err, "parquet: write fill metrics")
	}
	if err := writer.Close(); err != nil {
		file.Close() //nolint:errcheck
		return "", eris.Wrap(err, "parquet: close fill metrics writer")
	}
	if err := file.Close(); err != nil {
		return "", eris.Wrap(err, "parquet: close fill metrics file")
	}
	return path, nil
}
