// Command analyze prints per-policy comparison tables from recorded run
// results. It reads the SQLite results store by default, or a CSV export
// with -csv, and summarizes score, steps and outcome distribution for every
// policy that has recorded runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/gridsim/deliverybot/results"
)

func main() {
	dbPath := flag.String("db", "results.db", "Path to the SQLite results store")
	csvPath := flag.String("csv", "", "Read a CSV export instead of the store")
	flag.Parse()

	if *csvPath != "" {
		if err := analyzeCSV(*csvPath); err != nil {
			fmt.Printf("Error analyzing %s: %v\n", *csvPath, err)
			os.Exit(1)
		}
		return
	}

	if err := analyzeStore(*dbPath); err != nil {
		fmt.Printf("Error analyzing %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
}

// analyzeStore prints the comparison table straight from the store's
// aggregation query.
func analyzeStore(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no results store at %s", path)
	}

	store, err := results.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	aggs, err := store.PolicyAggregates(context.Background())
	if err != nil {
		return err
	}

	printStoreTable(path, aggs)
	return nil
}

// analyzeCSV aggregates CSV rows in process. The CSV export carries no
// outcome column, so the table shows deliveries instead of the outcome
// split.
func analyzeCSV(path string) error {
	records, err := results.ReadCSV(path)
	if err != nil {
		return err
	}

	printCSVTable(path, aggregateRecords(records))
	return nil
}

func printStoreTable(source string, aggs []results.PolicyAggregate) {
	fmt.Printf("\n=== Policy Comparison (%s) ===\n\n", source)

	if len(aggs) == 0 {
		fmt.Println("No recorded runs yet")
		return
	}

	fmt.Printf("%-12s %6s %10s %10s %9s %9s %9s %10s\n",
		"Policy", "Runs", "AvgScore", "AvgSteps", "Complete", "Stranded", "Depleted", "Cancelled")
	for _, agg := range aggs {
		fmt.Printf("%-12s %6d %10.1f %10.1f %9d %9d %9d %10d\n",
			agg.Policy, agg.Runs, agg.AvgScore, agg.AvgSteps,
			agg.Completed, agg.Stranded, agg.Depleted, agg.Cancelled)
	}

	fmt.Println()
	for _, agg := range aggs {
		if agg.Completed == 0 {
			fmt.Printf("⚠️  %s completed 0/%d runs\n", agg.Policy, agg.Runs)
		}
	}
	if best, ok := bestPolicy(aggs); ok {
		fmt.Printf("✅ Best average score: %s (%.1f)\n", best.Policy, best.AvgScore)
	}
}

// policySummary aggregates the CSV columns for one policy.
type policySummary struct {
	Policy        string
	Runs          int
	AvgScore      float64
	AvgSteps      float64
	AvgDeliveries float64
}

// aggregateRecords folds CSV rows into one summary per policy, sorted by
// policy name.
func aggregateRecords(records []results.RunRecord) []policySummary {
	type acc struct {
		runs       int
		score      int
		steps      int
		deliveries int
	}
	byPolicy := map[string]*acc{}
	for _, rec := range records {
		a := byPolicy[rec.Policy]
		if a == nil {
			a = &acc{}
			byPolicy[rec.Policy] = a
		}
		a.runs++
		a.score += rec.Score
		a.steps += rec.Steps
		a.deliveries += rec.Deliveries
	}

	summaries := make([]policySummary, 0, len(byPolicy))
	for policy, a := range byPolicy {
		summaries = append(summaries, policySummary{
			Policy:        policy,
			Runs:          a.runs,
			AvgScore:      float64(a.score) / float64(a.runs),
			AvgSteps:      float64(a.steps) / float64(a.runs),
			AvgDeliveries: float64(a.deliveries) / float64(a.runs),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Policy < summaries[j].Policy })
	return summaries
}

func printCSVTable(source string, summaries []policySummary) {
	fmt.Printf("\n=== Policy Comparison (%s) ===\n\n", source)

	if len(summaries) == 0 {
		fmt.Println("No recorded runs yet")
		return
	}

	fmt.Printf("%-12s %6s %10s %10s %14s\n",
		"Policy", "Runs", "AvgScore", "AvgSteps", "AvgDeliveries")
	for _, s := range summaries {
		fmt.Printf("%-12s %6d %10.1f %10.1f %14.1f\n",
			s.Policy, s.Runs, s.AvgScore, s.AvgSteps, s.AvgDeliveries)
	}
}

// bestPolicy picks the aggregate with the highest average score.
func bestPolicy(aggs []results.PolicyAggregate) (results.PolicyAggregate, bool) {
	if len(aggs) == 0 {
		return results.PolicyAggregate{}, false
	}
	best := aggs[0]
	for _, agg := range aggs[1:] {
		if agg.AvgScore > best.AvgScore {
			best = agg
		}
	}
	return best, true
}
