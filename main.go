// Command deliverybot runs the delivery robot simulator.
//
// It has four subcommands:
//  1. "serve" – runs the HTTP server exposing REST API, WebSocket streaming, and an /mcp HTTP endpoint
//  2. "run"   – plays one headless run on a scenario file or a generated world
//  3. "batch" – compares policies across seeds on a worker pool
//  4. "mcp"   – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, scenario directory, result sinks, debug logging,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/gridsim/deliverybot/api"
	"github.com/gridsim/deliverybot/results"
	"github.com/gridsim/deliverybot/sim/batch"
	"github.com/gridsim/deliverybot/sim/config"
	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/service"
	"github.com/gridsim/deliverybot/sim/session"
	"github.com/gridsim/deliverybot/sim/tuning"
	"github.com/gridsim/deliverybot/sim/worldgen"
	"github.com/gridsim/deliverybot/transport/mcp"
	"github.com/gridsim/deliverybot/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Delivery Bot Simulator"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		// Only log if it's not a "file not found" error
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	// A signal cancels the context; serve shuts down gracefully, run and
	// batch stop their simulations and keep what finished.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "deliverybot",
		Usage:   "battery-limited delivery robot simulator",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			runCommand(),
			batchCommand(),
			mcpCommand(),
		},
	}
}

// serveOptions carries the resolved serve flags.
type serveOptions struct {
	host        string
	port        int
	scenarioDir string
	runsDir     string
	dbPath      string
	traceDir    string
	tuningPath  string
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with REST API, WebSocket streaming, and MCP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "scenario-dir", Value: "configs", Usage: "directory containing scenario files", Sources: cli.EnvVars("SCENARIO_DIR")},
			&cli.StringFlag{Name: "runs-dir", Value: "runs", Usage: "directory for persisted run state"},
			&cli.StringFlag{Name: "db", Value: "results.db", Usage: "SQLite results database (empty disables recording)", Sources: cli.EnvVars("RESULTS_DB")},
			&cli.StringFlag{Name: "trace-dir", Value: "", Usage: "directory for per-run step traces (empty disables)"},
			&cli.StringFlag{Name: "tuning", Value: "", Usage: "YAML file with tuning overrides"},
			&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, serveOptions{
				host:        cmd.String("host"),
				port:        int(cmd.Int("port")),
				scenarioDir: cmd.String("scenario-dir"),
				runsDir:     cmd.String("runs-dir"),
				dbPath:      cmd.String("db"),
				traceDir:    cmd.String("trace-dir"),
				tuningPath:  cmd.String("tuning"),
				ngrok:       cmd.Bool("ngrok"),
				ngrokAuth:   cmd.String("ngrok-auth"),
				ngrokDomain: cmd.String("ngrok-domain"),
			})
		},
	}
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp
// proxy endpoint. If ngrok is enabled, it also provisions a public tunnel.
func runServe(ctx context.Context, opts serveOptions) error {
	log.Printf("Starting %s v%s", AppName, Version)

	runService, store, err := initializeServices(opts.scenarioDir, opts.runsDir, opts.dbPath, opts.traceDir, opts.tuningPath)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	// Create WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Create API server
	apiServer := api.NewServer(runService, hub)

	addr := fmt.Sprintf("%s:%d", opts.host, opts.port)

	// Create MCP client for the /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?run=<run_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Start ngrok tunnel if enabled
	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// mcpHTTPHandler serves MCP JSON-RPC messages posted over plain HTTP.
func mcpHTTPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrokTunnel serves the router through a public ngrok endpoint until the
// context is cancelled.
func runNgrokTunnel(ctx context.Context, opts serveOptions, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(opts.ngrokAuth),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?run=<run_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires the scenario manager, run manager, results store,
// and the run service. It also starts background routines that prune stale
// runs and sync memory with the runs directory.
func initializeServices(scenarioDir, runsDir, dbPath, traceDir, tuningPath string) (service.RunService, *results.Store, error) {
	scenarioManager, err := config.NewManager(scenarioDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(runsDir, scenarioManager)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run persistence: %w", err)
	}

	runManager := session.NewManagerWithPersistence(persistence)

	// Load persisted runs on startup
	if err := runManager.LoadPersistedRuns(); err != nil {
		log.Printf("Warning: Failed to load persisted runs: %v", err)
	}

	tun, err := loadTuning(tuningPath)
	if err != nil {
		return nil, nil, err
	}

	var store *results.Store
	var recorder service.ResultStore
	if dbPath != "" {
		store, err = results.OpenStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open results store: %w", err)
		}
		recorder = store
	}

	runService := service.NewRunService(runManager, scenarioManager, recorder, traceDir, tun)

	// Start run cleanup routine
	go runCleanupRoutine(runManager)

	// Start filesystem sync routine
	go filesystemSyncRoutine(runManager, persistence)

	return runService, store, nil
}

// loadTuning returns the canonical tuning, overridden by the YAML file at
// path when one is given.
func loadTuning(path string) (tuning.Tuning, error) {
	if path == "" {
		return tuning.Default(), nil
	}
	tun, err := tuning.Load(path)
	if err != nil {
		return tun, fmt.Errorf("failed to load tuning: %w", err)
	}
	log.Printf("Loaded tuning overrides from %s", path)
	return tun, nil
}

// runCleanupRoutine periodically removes runs that have not been accessed
// within the retention window.
func runCleanupRoutine(manager *session.Manager) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		removed := manager.CleanupExpiredRuns(24 * time.Hour)
		if removed > 0 {
			log.Printf("Cleaned up %d expired runs", removed)
		}
	}
}

// filesystemSyncRoutine periodically syncs in-memory runs with the runs
// directory. It removes runs from memory when their files are deleted.
func filesystemSyncRoutine(manager *session.Manager, persistence session.RunPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if persistence == nil {
			continue
		}

		pruned := 0
		for _, run := range manager.List() {
			if !persistence.Exists(run.ID) {
				// File deleted, remove from memory
				if err := manager.DeleteFromMemory(run.ID); err == nil {
					pruned++
					log.Printf("Pruned run %s from memory (file deleted)", run.ID)
				}
			}
		}

		if pruned > 0 {
			log.Printf("Filesystem sync: pruned %d orphaned runs from memory", pruned)
		}
	}
}

// runOptions carries the resolved run flags.
type runOptions struct {
	scenario   string
	seed       int64
	seedSet    bool
	policy     string
	gridSize   int
	csvPath    string
	dbPath     string
	tracePath  string
	tuningPath string
	verbose    bool
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "play one headless run and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Usage: "scenario JSON file to play instead of a generated world"},
			&cli.Int64Flag{Name: "seed", Usage: "world generation seed (default: current time)"},
			&cli.StringFlag{Name: "policy", Value: engine.PolicyGreedy, Usage: "planning policy (greedy, nearest, opportunist, reckless)"},
			&cli.IntFlag{Name: "grid-size", Usage: "generated grid size (0 uses the default)"},
			&cli.StringFlag{Name: "csv", Usage: "append the result row to this CSV file"},
			&cli.StringFlag{Name: "db", Usage: "record the result in this SQLite database"},
			&cli.StringFlag{Name: "trace", Usage: "write a compressed step trace to this file"},
			&cli.StringFlag{Name: "tuning", Usage: "YAML file with tuning overrides"},
			&cli.BoolFlag{Name: "verbose", Usage: "print every step"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runOnce(ctx, runOptions{
				scenario:   cmd.String("scenario"),
				seed:       cmd.Int64("seed"),
				seedSet:    cmd.IsSet("seed"),
				policy:     cmd.String("policy"),
				gridSize:   int(cmd.Int("grid-size")),
				csvPath:    cmd.String("csv"),
				dbPath:     cmd.String("db"),
				tracePath:  cmd.String("trace"),
				tuningPath: cmd.String("tuning"),
				verbose:    cmd.Bool("verbose"),
			})
		},
	}
}

// runOnce plays one simulation to its terminal state and fans the result out
// to the configured sinks. Cancellation keeps the partial result and records
// it under the cancelled outcome.
func runOnce(ctx context.Context, opts runOptions) error {
	if opts.scenario != "" && opts.seedSet {
		return fmt.Errorf("scenario and seed are mutually exclusive")
	}

	tun, err := loadTuning(opts.tuningPath)
	if err != nil {
		return err
	}

	var world *engine.World
	var runID, scenarioName string
	seed := opts.seed

	if opts.scenario != "" {
		sc, err := engine.LoadScenario(opts.scenario)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		world, err = engine.BuildWorld(sc, tun.RoughCost)
		if err != nil {
			return err
		}
		scenarioName = sc.Name
		runID = fmt.Sprintf("cli-%s", sc.Name)
		fmt.Printf("Scenario: %s (%dx%d, %d deliveries)\n", sc.Name, sc.GridSize, sc.GridSize, world.TotalDeliveries)
	} else {
		if !opts.seedSet {
			seed = time.Now().UnixNano()
		}
		params := worldgen.DefaultParams()
		if opts.gridSize > 0 {
			params.Size = opts.gridSize
		}
		params.RoughCost = tun.RoughCost
		world, err = worldgen.FromSeed(params, seed)
		if err != nil {
			return fmt.Errorf("failed to generate world: %w", err)
		}
		runID = fmt.Sprintf("cli-seed-%d", seed)
		fmt.Printf("World: seed %d (%dx%d, %d deliveries)\n", seed, params.Size, params.Size, world.TotalDeliveries)
	}

	planner, err := engine.NewPlanner(opts.policy, engine.NewPathFinder(world.Grid), tun.FeasibilityMargin)
	if err != nil {
		return err
	}

	fmt.Printf("Policy: %s | Battery: %d\n\n", opts.policy, tun.BatteryStart)

	var trace *results.TraceWriter
	if opts.tracePath != "" {
		trace, err = results.NewTraceWriter(opts.tracePath)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer trace.Close()
	}

	sim := engine.NewSimulation(world, planner, tun)
	result, runErr := sim.Run(ctx, func(obs engine.StepObservation) {
		if trace != nil {
			if err := trace.Write(obs); err != nil {
				fmt.Printf("Warning: Failed to write trace line: %v\n", err)
			}
		}
		if opts.verbose {
			line := fmt.Sprintf("%4d. (%d,%d) batt=%-4d score=%-5d", obs.Step, obs.Position.X, obs.Position.Y, obs.Battery, obs.Score)
			if obs.Event != "" {
				line += " " + obs.Event
			}
			fmt.Println(line)
		}
	})

	outcome := string(result.Outcome)
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
			return runErr
		}
		outcome = results.OutcomeCancelled
		fmt.Printf("\nRun cancelled after %d steps\n", result.Steps)
	}

	fmt.Printf("\nOutcome: %s | Score: %d | Steps: %d | Deliveries: %d/%d\n",
		outcome, result.Score, result.Steps, result.Deliveries, result.TotalDeliveries)
	if trace != nil {
		fmt.Printf("Trace written to %s\n", opts.tracePath)
	}

	rec := results.RunRecord{
		RunID:           runID,
		Scenario:        scenarioName,
		Policy:          opts.policy,
		Seed:            seed,
		Score:           result.Score,
		Steps:           result.Steps,
		Deliveries:      result.Deliveries,
		TotalDeliveries: result.TotalDeliveries,
		Outcome:         outcome,
		CreatedAt:       time.Now().UTC(),
	}

	if opts.csvPath != "" {
		if err := results.AppendCSV(opts.csvPath, rec); err != nil {
			return fmt.Errorf("failed to append csv: %w", err)
		}
		fmt.Printf("Result appended to %s\n", opts.csvPath)
	}
	if opts.dbPath != "" {
		store, err := results.OpenStore(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open results store: %w", err)
		}
		defer store.Close()
		// Record on a fresh context so a cancelled run still lands.
		if err := store.Record(context.Background(), rec); err != nil {
			return fmt.Errorf("failed to record result: %w", err)
		}
		fmt.Printf("Result recorded in %s\n", opts.dbPath)
	}
	return nil
}

// batchOptions carries the resolved batch flags.
type batchOptions struct {
	policies   string
	seeds      string
	count      int
	seedBase   int64
	workers    int
	gridSize   int
	csvPath    string
	dbPath     string
	tuningPath string
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "compare policies across seeds on a worker pool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "policies", Value: strings.Join(engine.PolicyNames(), ","), Usage: "comma-separated policies to compare"},
			&cli.StringFlag{Name: "seeds", Usage: "comma-separated seeds (overrides count)"},
			&cli.IntFlag{Name: "count", Value: 10, Usage: "number of sequential seeds to play"},
			&cli.Int64Flag{Name: "seed-base", Value: 1, Usage: "first seed of the sequential range"},
			&cli.IntFlag{Name: "workers", Usage: "worker pool size (0 uses all CPUs)"},
			&cli.IntFlag{Name: "grid-size", Usage: "generated grid size (0 uses the default)"},
			&cli.StringFlag{Name: "csv", Usage: "append result rows to this CSV file"},
			&cli.StringFlag{Name: "db", Usage: "record results in this SQLite database"},
			&cli.StringFlag{Name: "tuning", Usage: "YAML file with tuning overrides"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runBatch(ctx, batchOptions{
				policies:   cmd.String("policies"),
				seeds:      cmd.String("seeds"),
				count:      int(cmd.Int("count")),
				seedBase:   cmd.Int64("seed-base"),
				workers:    int(cmd.Int("workers")),
				gridSize:   int(cmd.Int("grid-size")),
				csvPath:    cmd.String("csv"),
				dbPath:     cmd.String("db"),
				tuningPath: cmd.String("tuning"),
			})
		},
	}
}

// runBatch plays the policy x seed matrix and prints rows as they finish,
// followed by the per-policy summary.
func runBatch(ctx context.Context, opts batchOptions) error {
	tun, err := loadTuning(opts.tuningPath)
	if err != nil {
		return err
	}

	policies := splitList(opts.policies)
	if len(policies) == 0 {
		return fmt.Errorf("no policies given")
	}

	var seeds []int64
	if opts.seeds != "" {
		seeds, err = parseSeeds(opts.seeds)
		if err != nil {
			return err
		}
	} else {
		seeds = batch.Seeds(opts.seedBase, opts.count)
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seeds given")
	}

	params := worldgen.DefaultParams()
	if opts.gridSize > 0 {
		params.Size = opts.gridSize
	}
	params.RoughCost = tun.RoughCost

	runner := &batch.Runner{
		Spec: batch.Spec{
			Policies: policies,
			Seeds:    seeds,
			Params:   params,
			Tuning:   tun,
			Workers:  opts.workers,
		},
		CSVPath: opts.csvPath,
		OnRow: func(row batch.Row) {
			if row.Err != nil {
				fmt.Printf("  %-12s seed=%-6d FAILED: %v\n", row.Policy, row.Seed, row.Err)
				return
			}
			fmt.Printf("  %-12s seed=%-6d %-9s score=%-5d steps=%-4d deliveries=%d/%d\n",
				row.Policy, row.Seed, row.Result.Outcome, row.Result.Score, row.Result.Steps,
				row.Result.Deliveries, row.Result.TotalDeliveries)
		},
	}

	if opts.dbPath != "" {
		store, err := results.OpenStore(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open results store: %w", err)
		}
		defer store.Close()
		runner.Store = store
	}

	fmt.Printf("Batch: %d policies x %d seeds (%dx%d worlds)\n\n", len(policies), len(seeds), params.Size, params.Size)

	summary, err := runner.Run(ctx)
	if summary != nil {
		printBatchSummary(summary)
	}
	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return nil
}

// printBatchSummary prints the per-policy comparison table for a finished
// batch.
func printBatchSummary(s *batch.Summary) {
	fmt.Printf("\n=== Batch Summary (%d rows in %s) ===\n\n", len(s.Rows), s.Duration.Round(time.Millisecond))

	fmt.Printf("%-12s %6s %6s %10s %10s %9s %9s %9s\n",
		"Policy", "Runs", "Fail", "AvgScore", "AvgSteps", "Complete", "Stranded", "Depleted")
	for _, stats := range s.Policies {
		fmt.Printf("%-12s %6d %6d %10.1f %10.1f %9d %9d %9d\n",
			stats.Policy, stats.Runs, stats.Failures, stats.AvgScore, stats.AvgSteps,
			stats.Completed, stats.Stranded, stats.Depleted)
	}

	best := ""
	bestScore := 0.0
	for _, stats := range s.Policies {
		if stats.Runs == stats.Failures {
			continue
		}
		if best == "" || stats.AvgScore > bestScore {
			best = stats.Policy
			bestScore = stats.AvgScore
		}
	}
	if best != "" {
		fmt.Printf("\n✅ Best average score: %s (%.1f)\n", best, bestScore)
	}
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseSeeds parses a comma-separated seed list.
func parseSeeds(s string) ([]int64, error) {
	var seeds []int64
	for _, part := range splitList(s) {
		seed, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", part)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// mcpOptions carries the resolved mcp flags.
type mcpOptions struct {
	apiURL      string
	scenarioDir string
	runsDir     string
	dbPath      string
	tuningPath  string
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server, reusing an external API or starting an internal one",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8080", Usage: "external API server to proxy"},
			&cli.StringFlag{Name: "scenario-dir", Value: "configs", Usage: "scenario directory for the internal server", Sources: cli.EnvVars("SCENARIO_DIR")},
			&cli.StringFlag{Name: "runs-dir", Value: "runs", Usage: "runs directory for the internal server"},
			&cli.StringFlag{Name: "db", Value: "", Usage: "SQLite results database for the internal server"},
			&cli.StringFlag{Name: "tuning", Value: "", Usage: "YAML file with tuning overrides for the internal server"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStdioMCP(mcpOptions{
				apiURL:      cmd.String("api"),
				scenarioDir: cmd.String("scenario-dir"),
				runsDir:     cmd.String("runs-dir"),
				dbPath:      cmd.String("db"),
				tuningPath:  cmd.String("tuning"),
			})
		},
	}
}

// runStdioMCP runs an MCP stdio server. It tries to reuse the external API
// first; if unavailable, it starts a minimal internal HTTP API bound to a
// random loopback port and targets that.
func runStdioMCP(opts mcpOptions) error {
	log.Printf("Starting %s v%s (MCP stdio)", AppName, Version)

	var baseURL string

	externalURL := opts.apiURL
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		// No external server found, start internal one
		log.Printf("No external API server found, starting internal HTTP server")

		runService, store, err := initializeServices(opts.scenarioDir, opts.runsDir, opts.dbPath, "", opts.tuningPath)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		if store != nil {
			defer store.Close()
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		go hub.Run()

		httpServer := &http.Server{
			Handler: api.NewServer(runService, hub),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		// Wait a moment for the server to be ready
		time.Sleep(100 * time.Millisecond)

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
