package results

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendCSV_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")

	first := RunRecord{Seed: 7, Score: 23, Steps: 27, Deliveries: 1, Policy: "greedy"}
	if err := AppendCSV(path, first); err != nil {
		t.Fatalf("Failed to append first row: %v", err)
	}
	second := RunRecord{Seed: 8, Score: -53, Steps: 4, Deliveries: 0, Policy: "reckless"}
	if err := AppendCSV(path, second); err != nil {
		t.Fatalf("Failed to append second row: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Seed,Score,Steps,Deliveries,Policy" {
		t.Errorf("Expected header row, got %q", lines[0])
	}
	if lines[1] != "7,23,27,1,greedy" {
		t.Errorf("Expected first data row 7,23,27,1,greedy, got %q", lines[1])
	}
	if lines[2] != "8,-53,4,0,reckless" {
		t.Errorf("Expected second data row 8,-53,4,0,reckless, got %q", lines[2])
	}
}

func TestReadCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	want := []RunRecord{
		{Seed: 1, Score: 46, Steps: 4, Deliveries: 1, Policy: "greedy"},
		{Seed: 2, Score: 0, Steps: 0, Deliveries: 0, Policy: "nearest"},
	}
	for _, rec := range want {
		if err := AppendCSV(path, rec); err != nil {
			t.Fatalf("Failed to append row: %v", err)
		}
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected record %d to be %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestReadCSV_Missing(t *testing.T) {
	if _, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("Expected error reading a missing csv")
	}
}

func TestReadCSV_MalformedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	if err := os.WriteFile(path, []byte("Seed,Score,Steps,Deliveries,Policy\n1,notanumber,3,0,greedy\n"), 0o644); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}
	if _, err := ReadCSV(path); err == nil {
		t.Error("Expected error for non-numeric score column")
	}
}
