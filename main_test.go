package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridsim/deliverybot/results"
	"github.com/gridsim/deliverybot/sim/tuning"
)

const testScenarioJSON = `{
	"name": "crossing",
	"description": "A small test world",
	"grid_size": 5,
	"layout": ["S....", ".#...", "..R..", "...~.", "P...G"],
	"legend": {".": "free", "#": "wall", "~": "rough", "P": "package", "G": "goal", "R": "recharger", "S": "start"}
}`

func writeTestScenario(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "crossing.json")
	if err := os.WriteFile(path, []byte(testScenarioJSON), 0644); err != nil {
		t.Fatalf("Failed to write scenario file: %v", err)
	}
	return path
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedVersion := "1.0.0"
	if Version != expectedVersion {
		t.Errorf("Expected version %s, got %s", expectedVersion, Version)
	}

	expectedAppName := "Delivery Bot Simulator"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"greedy,nearest", []string{"greedy", "nearest"}},
		{" greedy ,  nearest ", []string{"greedy", "nearest"}},
		{"greedy,,nearest,", []string{"greedy", "nearest"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tt := range tests {
		got := splitList(tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("splitList(%q) = %v, expected %v", tt.input, got, tt.expected)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("splitList(%q)[%d] = %q, expected %q", tt.input, i, got[i], tt.expected[i])
			}
		}
	}
}

func TestParseSeeds(t *testing.T) {
	seeds, err := parseSeeds("1, 2,42")
	if err != nil {
		t.Fatalf("parseSeeds failed: %v", err)
	}
	if len(seeds) != 3 || seeds[0] != 1 || seeds[1] != 2 || seeds[2] != 42 {
		t.Errorf("Unexpected seeds: %v", seeds)
	}

	if _, err := parseSeeds("1,abc"); err == nil {
		t.Error("Expected error for non-numeric seed")
	}
}

func TestLoadTuning_Default(t *testing.T) {
	tun, err := loadTuning("")
	if err != nil {
		t.Fatalf("loadTuning failed: %v", err)
	}
	if tun != tuning.Default() {
		t.Errorf("Expected default tuning, got %+v", tun)
	}
}

func TestLoadTuning_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("battery_start: 90\n"), 0644); err != nil {
		t.Fatalf("Failed to write tuning file: %v", err)
	}

	tun, err := loadTuning(path)
	if err != nil {
		t.Fatalf("loadTuning failed: %v", err)
	}
	if tun.BatteryStart != 90 {
		t.Errorf("Expected battery start 90, got %d", tun.BatteryStart)
	}
	if tun.DeliveryReward != tuning.Default().DeliveryReward {
		t.Errorf("Expected default delivery reward, got %d", tun.DeliveryReward)
	}
}

func TestLoadTuning_MissingFile(t *testing.T) {
	if _, err := loadTuning("/non/existent/tuning.yaml"); err == nil {
		t.Error("Expected error for missing tuning file")
	}
}

func TestInitializeServices(t *testing.T) {
	scenarioDir := t.TempDir()
	writeTestScenario(t, scenarioDir)
	runsDir := filepath.Join(t.TempDir(), "runs")
	dbPath := filepath.Join(t.TempDir(), "results.db")

	runService, store, err := initializeServices(scenarioDir, runsDir, dbPath, "", "")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if runService == nil {
		t.Fatal("Expected run service to be initialized")
	}
	if store == nil {
		t.Fatal("Expected results store to be opened")
	}
	defer store.Close()

	scenarios, err := runService.ListScenarios(context.Background())
	if err != nil {
		t.Fatalf("Failed to list scenarios: %v", err)
	}
	if len(scenarios) != 1 {
		t.Errorf("Expected 1 scenario, got %d", len(scenarios))
	}
}

func TestInitializeServices_NoStore(t *testing.T) {
	scenarioDir := t.TempDir()
	runsDir := filepath.Join(t.TempDir(), "runs")

	runService, store, err := initializeServices(scenarioDir, runsDir, "", "", "")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if store != nil {
		t.Error("Expected no store when db path is empty")
	}

	if _, err := runService.ListResults(context.Background(), 5); err == nil {
		t.Error("Expected error listing results without a store")
	}
}

func TestInitializeServices_InvalidScenarioDir(t *testing.T) {
	_, _, err := initializeServices("/non/existent/path", filepath.Join(t.TempDir(), "runs"), "", "", "")
	if err == nil {
		t.Error("Expected error for non-existent scenario directory")
	}
}

func TestRunOnce_Scenario(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := writeTestScenario(t, dir)
	csvPath := filepath.Join(dir, "results.csv")
	dbPath := filepath.Join(dir, "results.db")
	tracePath := filepath.Join(dir, "run.jsonl.zst")

	err := runOnce(context.Background(), runOptions{
		scenario:  scenarioPath,
		policy:    "greedy",
		csvPath:   csvPath,
		dbPath:    dbPath,
		tracePath: tracePath,
	})
	if err != nil {
		t.Fatalf("runOnce failed: %v", err)
	}

	rows, err := results.ReadCSV(csvPath)
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 csv row, got %d", len(rows))
	}
	if rows[0].Policy != "greedy" {
		t.Errorf("Expected policy greedy, got %s", rows[0].Policy)
	}

	obs, err := results.ReadTrace(tracePath)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(obs) == 0 {
		t.Fatal("Expected trace observations")
	}
	if !obs[len(obs)-1].Status.Terminal() {
		t.Errorf("Expected terminal status at end of trace, got %s", obs[len(obs)-1].Status)
	}

	store, err := results.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	recs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to query store: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Expected 1 recorded run, got %d", len(recs))
	}
	if recs[0].Scenario != "crossing" {
		t.Errorf("Expected scenario crossing, got %s", recs[0].Scenario)
	}
}

func TestRunOnce_ScenarioSeedConflict(t *testing.T) {
	err := runOnce(context.Background(), runOptions{
		scenario: "whatever.json",
		seed:     42,
		seedSet:  true,
		policy:   "greedy",
	})
	if err == nil {
		t.Error("Expected error for scenario and seed together")
	}
}

func TestRunOnce_UnknownPolicy(t *testing.T) {
	scenarioPath := writeTestScenario(t, t.TempDir())

	err := runOnce(context.Background(), runOptions{
		scenario: scenarioPath,
		policy:   "yolo",
	})
	if err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestRunOnce_MissingScenarioFile(t *testing.T) {
	err := runOnce(context.Background(), runOptions{
		scenario: "/non/existent/scenario.json",
		policy:   "greedy",
	})
	if err == nil {
		t.Error("Expected error for missing scenario file")
	}
}

func TestRunBatch(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "batch.csv")

	err := runBatch(context.Background(), batchOptions{
		policies: "greedy,reckless",
		seeds:    "1,2",
		workers:  2,
		csvPath:  csvPath,
	})
	if err != nil {
		t.Fatalf("runBatch failed: %v", err)
	}

	rows, err := results.ReadCSV(csvPath)
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("Expected 4 csv rows, got %d", len(rows))
	}
}

func TestRunBatch_NoPolicies(t *testing.T) {
	err := runBatch(context.Background(), batchOptions{policies: " , ", count: 1})
	if err == nil {
		t.Error("Expected error for empty policy list")
	}
}

func TestRunBatch_BadSeeds(t *testing.T) {
	err := runBatch(context.Background(), batchOptions{policies: "greedy", seeds: "1,x"})
	if err == nil {
		t.Error("Expected error for malformed seed list")
	}
}

// main(), runServe(), and runStdioMCP() start servers and block; they are
// exercised by integration tests against a running binary rather than here.
