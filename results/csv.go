package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

var csvHeader = []string{"Seed", "Score", "Steps", "Deliveries", "Policy"}

// AppendCSV appends one run row to a CSV file, writing the header first
// when the file does not exist yet.
func AppendCSV(path string, rec RunRecord) error {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		strconv.FormatInt(rec.Seed, 10),
		strconv.Itoa(rec.Score),
		strconv.Itoa(rec.Steps),
		strconv.Itoa(rec.Deliveries),
		rec.Policy,
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReadCSV loads the rows AppendCSV wrote. Only the columns the CSV carries
// are populated on the returned records.
func ReadCSV(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}

	var records []RunRecord
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue
		}
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("csv %s row %d: expected %d columns, got %d", path, i+1, len(csvHeader), len(row))
		}
		seed, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv %s row %d: bad seed %q", path, i+1, row[0])
		}
		score, err1 := strconv.Atoi(row[1])
		steps, err2 := strconv.Atoi(row[2])
		deliveries, err3 := strconv.Atoi(row[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("csv %s row %d: non-numeric column", path, i+1)
		}
		records = append(records, RunRecord{
			Seed:       seed,
			Score:      score,
			Steps:      steps,
			Deliveries: deliveries,
			Policy:     row[4],
		})
	}
	return records, nil
}
