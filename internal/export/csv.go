package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the frame as UTF-8 CSV prefixed with a byte-order mark so
// spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, f Frame) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(f.Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range f.Rows {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the frame to path, creating parent directories.
func WriteCSVFile(path string, f Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, f); err != nil {
		return err
	}

	log.Info().
		Str("path", path).
		Int("records", len(f.Rows)).
		Msg("Wrote CSV export")
	return file.Close()
}
