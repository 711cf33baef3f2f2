package storage

import (
	"fmt"
	"os"

	"github.com/segmentio/parquet-go"
)

// SpectrumRow is one frequency bin of the averaged campaign spectrum
type SpectrumRow struct {
	Frequency float64 `parquet:"frequency"`
	Voltage   float64 `parquet:"voltage"`
	Current   float64 `parquet:"current"`
}

// HarmonicRow is one harmonic order of the averaged campaign harmonics
type HarmonicRow struct {
	Order        int32   `parquet:"order"`
	Frequency    float64 `parquet:"frequency"`
	Voltage      float64 `parquet:"voltage"`
	Current      float64 `parquet:"current"`
	VoltageRatio float64 `parquet:"voltage_ratio"` // percent of fundamental, 0 for the fundamental itself
	CurrentRatio float64 `parquet:"current_ratio"`
}

// ExportSpectrum writes the spectrum rows to a Parquet file. Metadata is
// stored as key/value pairs in the file footer.
func ExportSpectrum(path string, rows []SpectrumRow, metadata map[string]string) error {
	return writeParquet(path, rows, metadata)
}

// ExportHarmonics writes the harmonic rows to a Parquet file
func ExportHarmonics(path string, rows []HarmonicRow, metadata map[string]string) error {
	return writeParquet(path, rows, metadata)
}

func writeParquet[T any](path string, rows []T, metadata map[string]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer closeWithError(f, &err)

	options := make([]parquet.WriterOption, 0, len(metadata))
	for k, v := range metadata {
		options = append(options, parquet.KeyValueMetadata(k, v))
	}

	writer := parquet.NewGenericWriter[T](f, options...)

	if _, err = writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing rows: %w", err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}

	return nil
}
