package telemetry

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/HW-25/Project-QLX/internal/model"
)

var csvHeader = []string{
	"timestamp",
	"node_id",
	"source",
	"power_mw",
	"energy_mws",
	"valor",
}

// WriteCSV writes samples to CSV with a fixed column order.
func WriteCSV(w io.Writer, samples []model.Sample) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	if err := writeRecords(writer, samples); err != nil {
		return err
	}
	return writer.Error()
}

// AppendCSV appends samples to the file at path, creating it (with a
// header) when missing.
func AppendCSV(path string, samples []model.Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	info, err := os.Stat(path)
	writeHeader := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if writeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := writeRecords(writer, samples); err != nil {
		return err
	}
	return writer.Error()
}

func writeRecords(writer *csv.Writer, samples []model.Sample) error {
	for _, s := range samples {
		record := []string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			s.NodeID,
			string(s.Source),
			strconv.FormatFloat(s.PowerMW, 'f', 3, 64),
			strconv.FormatFloat(s.EnergyMWs, 'f', 3, 64),
			strconv.FormatFloat(s.Valor, 'f', 8, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
