package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/demo"
	"github.com/castlemilk/pfinance/insights/internal/engine"
	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/service"
)

func main() {
	_ = godotenv.Load()
	log := logger.New(logger.Options{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "predict-expenses", "predict-income", "anomalies", "savings", "recurring", "report":
		runAnalysis(log, os.Args[1])
	case "categorize":
		runCategorize(log)
	case "seed":
		runSeed(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Financial insights CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  insights <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  predict-expenses  Forecast monthly expenses")
	fmt.Println("  predict-income    Forecast monthly income")
	fmt.Println("  anomalies         Flag unusual spending in the current month")
	fmt.Println("  savings           Recommend a monthly savings target")
	fmt.Println("  recurring         List recurring transactions")
	fmt.Println("  report            Run every analysis and print the combined report")
	fmt.Println("  categorize        Suggest a category for a description")
	fmt.Println("  seed              Generate a demo history to a file or a server")
	fmt.Println("  help              Show this help message")
	fmt.Println("\nRun 'insights <command> -h' for more information on a command.")
}

type analysisFlags struct {
	file    string
	now     string
	horizon int
	server  string
	token   string
}

func runAnalysis(log zerolog.Logger, command string) {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	var f analysisFlags
	fs.StringVar(&f.file, "file", "", "Path to a JSON snapshot (array of transactions or {\"transactions\": [...]})")
	fs.StringVar(&f.now, "now", "", "Evaluation date, YYYY-MM-DD (defaults to today)")
	fs.IntVar(&f.horizon, "horizon", engine.DefaultHorizon, "Forecast horizon in months")
	fs.StringVar(&f.server, "server", "", "Insights server URL; when set the snapshot is analysed remotely")
	fs.StringVar(&f.token, "token", os.Getenv("INSIGHTS_TOKEN"), "Bearer token for -server")
	fs.Parse(os.Args[2:])

	if f.file == "" {
		log.Fatal().Msg("Error: -file is required")
	}
	txs, err := readSnapshot(f.file)
	if err != nil {
		log.Fatal().Err(err).Str("file", f.file).Msg("Failed to read snapshot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Debug().Int("transactions", len(txs)).Str("command", command).Msg("Running analysis")

	var out any
	if f.server != "" {
		out, err = analyseRemote(ctx, command, txs, f)
	} else {
		out, err = analyseLocal(ctx, command, txs, f, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}
	printJSON(out)
}

func analyseLocal(ctx context.Context, command string, txs []finance.Transaction, f analysisFlags, log zerolog.Logger) (any, error) {
	opts := []engine.Option{engine.WithLogger(log)}
	if f.now != "" {
		now, err := finance.ParseDate(f.now)
		if err != nil {
			return nil, fmt.Errorf("invalid -now: %w", err)
		}
		opts = append(opts, engine.WithClock(engine.FixedClock(now)))
	}
	eng := engine.New(opts...)

	switch command {
	case "predict-expenses":
		return eng.PredictExpenses(ctx, txs, f.horizon)
	case "predict-income":
		return eng.PredictIncome(ctx, txs, f.horizon)
	case "anomalies":
		return eng.IdentifyAnomalousSpending(ctx, txs)
	case "savings":
		return eng.SuggestSavingsGoals(ctx, txs)
	case "recurring":
		return eng.DetectRecurring(ctx, txs, f.horizon)
	default:
		return eng.GenerateFinancialInsights(ctx, txs, f.horizon)
	}
}

func analyseRemote(ctx context.Context, command string, txs []finance.Transaction, f analysisFlags) (any, error) {
	if f.now != "" {
		return nil, fmt.Errorf("-now is only supported for local analysis")
	}
	client := service.NewInsightsClient(http.DefaultClient, f.server)
	snap := service.SnapshotRequest{Transactions: txs}

	switch command {
	case "predict-expenses":
		resp, err := client.PredictExpenses(ctx, authorize(connect.NewRequest(&service.PredictRequest{SnapshotRequest: snap, Horizon: f.horizon}), f.token))
		return msg(resp, err)
	case "predict-income":
		resp, err := client.PredictIncome(ctx, authorize(connect.NewRequest(&service.PredictRequest{SnapshotRequest: snap, Horizon: f.horizon}), f.token))
		return msg(resp, err)
	case "anomalies":
		resp, err := client.IdentifyAnomalousSpending(ctx, authorize(connect.NewRequest(&service.AnomaliesRequest{SnapshotRequest: snap}), f.token))
		return msg(resp, err)
	case "savings":
		resp, err := client.SuggestSavingsGoals(ctx, authorize(connect.NewRequest(&service.SavingsGoalsRequest{SnapshotRequest: snap}), f.token))
		return msg(resp, err)
	case "recurring":
		resp, err := client.DetectRecurring(ctx, authorize(connect.NewRequest(&service.RecurringRequest{SnapshotRequest: snap, Horizon: f.horizon}), f.token))
		return msg(resp, err)
	default:
		resp, err := client.GenerateFinancialInsights(ctx, authorize(connect.NewRequest(&service.InsightsRequest{SnapshotRequest: snap, Horizon: f.horizon}), f.token))
		return msg(resp, err)
	}
}

func runCategorize(log zerolog.Logger) {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	description := fs.String("description", "", "Transaction description to classify")
	fs.Parse(os.Args[2:])

	if *description == "" {
		log.Fatal().Msg("Error: -description is required")
	}
	printJSON(engine.New().CategorizeTransaction(*description))
}

func runSeed(log zerolog.Logger) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	opts := demo.DefaultOptions()
	out := fs.String("out", "", "Write the generated snapshot to this file")
	server := fs.String("server", "", "Insights server URL to upload the history to")
	token := fs.String("token", os.Getenv("INSIGHTS_TOKEN"), "Bearer token for -server")
	userID := fs.String("user", auth.LocalDevUserID, "User ID recorded on generated transactions")
	fs.IntVar(&opts.Months, "months", opts.Months, "Months of history to generate")
	fs.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	fs.Float64Var(&opts.Salary, "salary", opts.Salary, "Monthly salary")
	fs.Parse(os.Args[2:])

	if *out == "" && *server == "" {
		log.Fatal().Msg("Usage: insights seed -out FILE | -server URL")
	}

	txs := demo.History(*userID, time.Now(), opts)
	log.Info().Int("transactions", len(txs)).Int("months", opts.Months).Msg("Generated demo history")

	if *out != "" {
		data, err := json.MarshalIndent(map[string]any{"transactions": txs}, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode snapshot")
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatal().Err(err).Str("file", *out).Msg("Failed to write snapshot")
		}
		fmt.Printf("Wrote %d transactions to %s\n", len(txs), *out)
	}

	if *server != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		client := service.NewInsightsClient(http.DefaultClient, *server)
		for i := 0; i < len(txs); i += seedBatchSize {
			end := min(i+seedBatchSize, len(txs))
			req := authorize(connect.NewRequest(&service.AddTransactionsRequest{Transactions: txs[i:end]}), *token)
			if _, err := client.AddTransactions(ctx, req); err != nil {
				log.Fatal().Err(err).Int("offset", i).Msg("Failed to upload transactions")
			}
		}
		fmt.Printf("Uploaded %d transactions to %s\n", len(txs), *server)
	}
}

const seedBatchSize = 1000

func authorize[T any](req *connect.Request[T], token string) *connect.Request[T] {
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

func msg[T any](resp *connect.Response[T], err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// readSnapshot accepts either a bare JSON array or an object with a
// "transactions" field.
func readSnapshot(path string) ([]finance.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var txs []finance.Transaction
		if err := json.Unmarshal(trimmed, &txs); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot: %w", err)
		}
		return txs, nil
	}
	var wrapped struct {
		Transactions []finance.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return wrapped.Transactions, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
