package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olegiv/sniper-tuner-go/internal/ai"
	"github.com/olegiv/sniper-tuner-go/internal/analysis"
	"github.com/olegiv/sniper-tuner-go/internal/config"
	"github.com/olegiv/sniper-tuner-go/internal/datalog"
	"github.com/olegiv/sniper-tuner-go/internal/logging"
	"github.com/olegiv/sniper-tuner-go/internal/notification"
	"github.com/olegiv/sniper-tuner-go/internal/profile"
	"github.com/olegiv/sniper-tuner-go/internal/recommend"
	"github.com/olegiv/sniper-tuner-go/internal/report"
	"github.com/olegiv/sniper-tuner-go/internal/storage"
	"github.com/olegiv/sniper-tuner-go/pkg/logger"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// recentSlipLimit bounds how many past passes feed the rule engine and report.
const recentSlipLimit = 10

// Version information - injected at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI arguments first
	cli := config.ParseCLI()

	if cli.ShowHelp {
		config.PrintUsage()
		return exitSuccess
	}

	if cli.ShowVersion {
		fmt.Printf("sniper-tuner %s\n", version)
		if gitCommit != "unknown" {
			fmt.Printf("  commit: %s\n", gitCommit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
		return exitSuccess
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Load configuration with CLI overrides
	cfg, err := config.LoadWithCLI(cli)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitFailure
	}

	if cli.ListVehicles {
		if err := listVehicles(cfg); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitSuccess
	}

	// Initialize logger with credential sanitization
	baseLog := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		LogDir:     "./logs",
		MaxSizeMB:  10,
		MaxBackups: 5,
		Console:    true,
	})
	log := logging.NewSecure(baseLog)
	defer func() {
		if err := log.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	log.Info().Str("version", version).Msg("Starting Sniper Tuner")

	if err := runTuner(ctx, cli, cfg, log); err != nil {
		log.Error().Err(err).Msg("Tuning run failed")
		return exitFailure
	}

	log.Info().Msg("Tuning run completed successfully")
	return exitSuccess
}

// listVehicles prints the garage roster and exits.
func listVehicles(cfg *config.Config) error {
	garage, path, err := profile.LoadGarage(cfg.GarageConfigPath)
	if err != nil {
		return err
	}
	if garage == nil {
		fmt.Println("No garage.json found. Create one to manage multiple vehicles.")
		return nil
	}

	fmt.Printf("Vehicles in %s:\n", path)
	for _, id := range garage.ListVehicles() {
		v, err := garage.GetVehicle(id)
		if err != nil {
			continue
		}
		marker := " "
		if id == garage.DefaultVehicle {
			marker = "*"
		}
		fmt.Printf("  %s %-16s %s\n", marker, id, v.Description())
	}
	if garage.DefaultVehicle != "" {
		fmt.Println("\n  * = default vehicle")
	}
	return nil
}

func runTuner(ctx context.Context, cli *config.CLIOptions, cfg *config.Config, log *logging.SecureLogger) error {
	startTime := time.Now()

	// 1. Storage (if enabled)
	var store *storage.Storage
	var err error

	if cfg.EnableDatabase {
		store, err = storage.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func(store *storage.Storage) {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close database")
			}
		}(store)
		log.Info().Str("path", cfg.DatabasePath).Msg("Database initialized")
	}

	// 2. Resolve the vehicle
	vehicleID, veh, err := resolveVehicle(cfg, log)
	if err != nil {
		return err
	}
	log.Info().Str("vehicle", vehicleID).Str("combo", veh.Description()).Msg("Vehicle selected")

	// 3. Record a time slip before analysis so this pass counts in the history
	if cli.TimeSlip != "" {
		slip, err := profile.ParseSlipSpec(cli.TimeSlip)
		if err != nil {
			return fmt.Errorf("invalid -timeslip value: %w", err)
		}
		if store == nil {
			log.Warn().Msg("Time slip given but database is disabled; slip not recorded")
		} else if err := store.SaveTimeSlip(vehicleID, slip); err != nil {
			return fmt.Errorf("failed to record time slip: %w", err)
		} else {
			log.Info().
				Float64("quarter_et", slip.QuarterET).
				Float64("quarter_mph", slip.QuarterMPH).
				Msg("Time slip recorded")
		}
	}

	// 4. Read and decode the datalog
	data, source, err := readDatalog(cli, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("source", source).Int("bytes", len(data)).Msg("Datalog loaded")

	raw, err := datalog.Normalize(data, source)
	if err != nil {
		// A corrupt compressed container is recoverable: Normalize still
		// returns the original bytes tagged FormatUnknown so the raw-fallback
		// decoder can attempt a salvage.
		var decompErr *datalog.DecompressionError
		if !errors.As(err, &decompErr) {
			return fmt.Errorf("failed to normalize datalog: %w", err)
		}
		log.Warn().Err(err).Msg("Corrupt compressed container, attempting raw salvage")
	}
	log.Info().Str("container", string(raw.Format)).Msg("Datalog normalized")

	decoded, err := datalog.Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode datalog: %w", err)
	}
	log.Info().
		Str("decoder", decoded.Decoder).
		Str("confidence", string(decoded.Confidence)).
		Int("records", len(decoded.Records)).
		Int("issues", len(decoded.Issues)).
		Msg("Datalog decoded")

	if err := ctx.Err(); err != nil {
		return err
	}

	// 5. Analyze
	result := analysis.Analyze(decoded, veh, analysis.Settings{
		WOTTPSThresholdPct: cfg.WOTTPSThresholdPct,
		WOTMinSamples:      cfg.WOTMinSamples,
	})
	log.Info().
		Int("wot_runs", len(result.WOT.Runs)).
		Float64("max_rpm", result.Log.MaxRPM).
		Msg("Analysis completed")

	// 6. Time slip history feeds the rule engine
	var slips []profile.TimeSlip
	if store != nil {
		slips, err = store.GetTimeSlips(vehicleID, recentSlipLimit)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load time slips, continuing without them")
		}
	}

	// 7. Recommendations
	recs, skipped := recommend.Evaluate(&recommend.Input{
		Profile:   veh,
		Analysis:  result,
		TimeSlips: slips,
	})
	for _, skip := range skipped {
		log.Warn().Err(skip).Msg("Rule skipped")
	}
	log.Info().Int("recommendations", len(recs)).Msg("Rules evaluated")

	reportData := &report.Data{
		Profile:         veh,
		Analysis:        result,
		TimeSlips:       slips,
		Recommendations: recs,
		GeneratedAt:     time.Now(),
	}

	// 8. Optional LLM narration of the deterministic results
	var narration *ai.Narration
	var stats *ai.Stats
	if cfg.EnableNarration {
		narration, stats, err = narrate(ctx, cfg, store, vehicleID, reportData, log)
		if err != nil {
			log.Warn().Err(err).Msg("Narration failed, continuing with deterministic report")
		} else if narration != nil {
			reportData.Narration = narration.FormatNotes()
		}
	}

	// 9. Render the report
	fmt.Println(report.RenderText(reportData))

	if cli.YAMLOut != "" {
		doc := report.BuildParameterDoc(veh, recs, time.Now())
		out, err := report.RenderYAML(doc)
		if err != nil {
			return fmt.Errorf("failed to render parameter doc: %w", err)
		}
		if err := os.WriteFile(cli.YAMLOut, out, 0o644); err != nil {
			return fmt.Errorf("failed to write parameter doc: %w", err)
		}
		log.Info().Str("path", cli.YAMLOut).Msg("Parameter doc written")
	}

	// 10. Persist the session
	if store != nil {
		saveSession(store, vehicleID, veh, decoded, result, recs, narration, stats, cfg, log)
	}

	// 11. Telegram notification
	if cfg.EnableTelegram {
		if err := notify(cfg, veh, decoded, narration, stats, recs, log); err != nil {
			return fmt.Errorf("failed to send Telegram notification: %w", err)
		}
	}

	log.Info().
		Float64("total_duration_s", time.Since(startTime).Seconds()).
		Msg("All operations completed")

	return nil
}

// resolveVehicle picks the profile for this run: the -vehicle flag, the
// garage default, or the built-in small-block profile when no garage exists.
func resolveVehicle(cfg *config.Config, log *logging.SecureLogger) (string, *profile.VehicleProfile, error) {
	garage, path, err := profile.LoadGarage(cfg.GarageConfigPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load garage: %w", err)
	}

	if garage == nil {
		if cfg.Vehicle != "" {
			return "", nil, fmt.Errorf("vehicle %q requested but no garage.json found", cfg.Vehicle)
		}
		log.Info().Msg("No garage.json found, using the default profile")
		return "default", profile.DefaultProfile(), nil
	}

	log.Info().Str("path", path).Msg("Garage loaded")

	vehicleID := cfg.Vehicle
	if vehicleID == "" {
		vehicleID = garage.DefaultVehicle
	}
	veh, err := garage.GetVehicle(vehicleID)
	if err != nil {
		return "", nil, err
	}
	return vehicleID, veh, nil
}

// readDatalog returns the raw bytes for this run, either a generated sample
// pass or the configured file, with the size cap enforced before reading.
func readDatalog(cli *config.CLIOptions, cfg *config.Config) ([]byte, string, error) {
	if cli.Sample {
		return datalog.GenerateSamplePass(), "sample-pass", nil
	}

	if cfg.DatalogPath == "" {
		return nil, "", fmt.Errorf("no datalog given: use -datalog <file> or -sample")
	}

	info, err := os.Stat(cfg.DatalogPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat datalog: %w", err)
	}
	maxBytes := int64(cfg.MaxLogSizeMB) * 1024 * 1024
	if info.Size() > maxBytes {
		return nil, "", fmt.Errorf("datalog is %.1f MB, limit is %d MB", float64(info.Size())/(1024*1024), cfg.MaxLogSizeMB)
	}

	data, err := os.ReadFile(cfg.DatalogPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read datalog: %w", err)
	}
	return data, cfg.DatalogPath, nil
}

// narrate runs the configured LLM provider over the deterministic report.
func narrate(ctx context.Context, cfg *config.Config, store *storage.Storage, vehicleID string, data *report.Data, log *logging.SecureLogger) (*ai.Narration, *ai.Stats, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info().
		Str("provider", provider.GetProviderName()).
		Str("model", cfg.GetLLMModel()).
		Msg("Narration provider initialized")

	var historicalContext string
	if store != nil {
		historicalContext, err = store.GetHistoricalContext(cfg.HistoryDays, vehicleID)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to get historical context, continuing without it")
		}
	}

	passReport := report.RenderText(data)
	systemPrompt := ai.GetSystemPrompt()
	userPrompt := ai.GetUserPrompt(passReport, historicalContext)

	narration, stats, err := provider.Narrate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("verdict", narration.Verdict).
		Float64("cost_usd", stats.CostUSD).
		Float64("duration_s", stats.DurationSeconds).
		Msg("Narration completed")
	log.Debug().
		Int("input_tokens", stats.InputTokens).
		Int("output_tokens", stats.OutputTokens).
		Msg("Token usage details")

	return narration, stats, nil
}

// buildProvider wires the narration backend selected by LLM_PROVIDER.
func buildProvider(cfg *config.Config) (ai.Provider, error) {
	if cfg.IsOllama() {
		return ai.NewOllamaClient(ai.OllamaConfig{
			BaseURL:        cfg.OllamaBaseURL,
			Model:          cfg.OllamaModel,
			TimeoutSeconds: cfg.AITimeoutSeconds,
			MaxTokens:      cfg.AIMaxTokens,
		})
	}
	proxyURL := cfg.GetProxyURL(true)
	return ai.NewClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, proxyURL, cfg.AITimeoutSeconds, cfg.AIMaxTokens)
}

// saveSession persists this run and prunes history past the retention window.
// Persistence failures are logged, never fatal: the report already printed.
func saveSession(store *storage.Storage, vehicleID string, veh *profile.VehicleProfile, decoded *datalog.DecodedLog, result *analysis.Result, recs []recommend.Recommendation, narration *ai.Narration, stats *ai.Stats, cfg *config.Config, log *logging.SecureLogger) {
	if err := store.SaveVehicle(vehicleID, veh); err != nil {
		log.Warn().Err(err).Msg("Failed to save vehicle profile")
	}

	summary := fmt.Sprintf("%d recommendations from %d records (%s confidence)",
		len(recs), result.Log.Records, decoded.Confidence)
	if narration != nil {
		summary = narration.Summary
	}

	recLines := make([]string, 0, len(recs))
	for _, r := range recs {
		recLines = append(recLines, fmt.Sprintf("[%s] %s: %s", r.Category, r.Parameter, r.Recommended))
	}
	issueLines := make([]string, 0, len(decoded.Issues))
	for _, iss := range decoded.Issues {
		issueLines = append(issueLines, iss.String())
	}

	session := &storage.Session{
		Timestamp:       time.Now(),
		VehicleID:       vehicleID,
		Source:          decoded.Source,
		Decoder:         decoded.Decoder,
		Confidence:      string(decoded.Confidence),
		Summary:         summary,
		Recommendations: recLines,
		Issues:          issueLines,
		Metrics: map[string]interface{}{
			"records":     result.Log.Records,
			"duration_s":  result.Log.DurationSeconds,
			"max_rpm":     result.Log.MaxRPM,
			"max_tps":     result.Log.MaxTPS,
			"wot_runs":    len(result.WOT.Runs),
			"avg_wot_afr": result.WOT.OverallAvgAFR,
		},
	}
	if stats != nil {
		session.InputTokens = stats.InputTokens
		session.OutputTokens = stats.OutputTokens
		session.CostUSD = stats.CostUSD
	}

	if err := store.SaveSession(session); err != nil {
		log.Warn().Err(err).Msg("Failed to save session")
	} else {
		log.Info().Int64("id", session.ID).Msg("Session saved")
	}

	deleted, err := store.CleanupOldSessions(cfg.HistoryDays)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to cleanup old sessions")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Old sessions cleaned up")
	}
}

// notify sends the report to the configured Telegram channels.
func notify(cfg *config.Config, veh *profile.VehicleProfile, decoded *datalog.DecodedLog, narration *ai.Narration, stats *ai.Stats, recs []recommend.Recommendation, log *logging.SecureLogger) error {
	client, err := notification.NewTelegramClient(
		cfg.TelegramBotToken,
		cfg.TelegramArchiveChannel,
		cfg.TelegramAlertsChannel,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Telegram client")
		}
	}()

	botInfo := client.GetBotInfo()
	log.Info().
		Str("username", botInfo["username"].(string)).
		Msg("Telegram bot initialized")

	return client.SendTuneReport(&notification.Report{
		Vehicle:         veh.Description(),
		Source:          decoded.Source,
		Narration:       narration,
		Stats:           stats,
		Recommendations: recs,
	})
}
