// Command guardcore runs the observability and safety core: the guard
// pipelines, hook framework, quota enforcer, metric ring buffer and
// writer, and the admin HTTP surface, wired together and pointed at a
// PostgreSQL store.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agentcore/guardcore/pkg/api"
	"github.com/agentcore/guardcore/pkg/config"
	"github.com/agentcore/guardcore/pkg/cost"
	"github.com/agentcore/guardcore/pkg/emitter"
	"github.com/agentcore/guardcore/pkg/guard"
	"github.com/agentcore/guardcore/pkg/guard/outputstages"
	"github.com/agentcore/guardcore/pkg/guard/stages"
	"github.com/agentcore/guardcore/pkg/health"
	"github.com/agentcore/guardcore/pkg/hook"
	"github.com/agentcore/guardcore/pkg/masking"
	"github.com/agentcore/guardcore/pkg/orchestrator"
	"github.com/agentcore/guardcore/pkg/quota"
	"github.com/agentcore/guardcore/pkg/ring"
	"github.com/agentcore/guardcore/pkg/rules"
	"github.com/agentcore/guardcore/pkg/store"
	"github.com/agentcore/guardcore/pkg/tenant"
	"github.com/agentcore/guardcore/pkg/writer"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const ruleCacheRefreshInterval = 30 * time.Second

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	httpAddr := flag.String("http-addr", getEnv("HTTP_ADDR", ":8080"), "Admin HTTP listen address")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}

	client, err := store.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("error closing store client: %v", err)
		}
	}()
	slog.Info("connected to store", "host", dbCfg.Host, "database", dbCfg.Database)

	buffer := ring.New(cfg.Buffer.Capacity)
	monitor := health.New()
	resolver := tenant.NewResolver(tenant.DefaultTenantID)

	calculator := cost.New(store.NewPricingSource(client))
	eventStore := store.NewEventStore(client)
	metricWriter := writer.New(buffer, eventStore, calculator, monitor, cfg.Writer.BatchSize, cfg.Writer.FlushInterval)
	metricWriter.Start(ctx)

	sweeper := store.NewRetentionSweeper(client, dbCfg.RetentionDays, 24*time.Hour)
	sweeper.Start(ctx)

	tenantStore := store.NewTenantStore(client)

	inputPipeline := buildInputPipeline(cfg)
	outputPipeline := buildOutputPipeline(client)

	hooks := hook.NewRegistry()
	hooks.RegisterBeforeAgentStart(quota.NewEnforcer(tenantStore, buffer))
	collection := emitter.NewMetricCollectionHook(buffer, monitor)
	hooks.RegisterAfterAgentComplete(collection)
	hooks.RegisterAfterToolCall(collection)
	hooks.RegisterAfterToolCall(emitter.NewHitlEventHook(buffer, monitor))

	// The orchestrator is the entry point an inbound agent-request
	// transport calls per request. This binary doesn't implement that
	// transport (§1 Non-goals: "the REST/HTTP transport layer"), so it
	// only constructs and holds the orchestrator ready for one to be
	// wired in; what actually runs here is the admin/metrics surface.
	core := &externalAgentCore{}
	_ = orchestrator.New(resolver, hooks, inputPipeline, outputPipeline, core, buffer,
		orchestrator.WithRequestTimeout(cfg.Request.Timeout),
		orchestrator.WithRetryPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, cfg.Retry.Multiplier, cfg.Retry.MaxDelay),
	)

	server := api.NewServer(buffer, monitor, resolver)

	serveErrCh := make(chan error, 1)
	go func() {
		slog.Info("admin HTTP server listening", "addr", *httpAddr)
		serveErrCh <- server.Start(*httpAddr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErrCh:
		if err != nil {
			slog.Error("admin HTTP server exited", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("admin HTTP server shutdown failed", "error", err)
	}
	sweeper.Stop()
	metricWriter.Stop(shutdownCtx)
}

func buildInputPipeline(cfg *config.Config) *guard.Pipeline {
	guardStages := []guard.Stage{
		stages.NewRateLimit(cfg.Guard),
		stages.NewInputValidation(cfg.Guard),
		stages.NewInjectionDetection(),
		stages.NewUnicodeNormalization(cfg.Guard),
	}
	if cfg.Guard.EnableClassification {
		guardStages = append(guardStages, stages.NewClassification(nil, nil))
	}
	if cfg.Guard.EnableTopicDrift {
		guardStages = append(guardStages, stages.NewTopicDriftDetection(cfg.Guard))
	}
	return guard.NewPipeline(guardStages, nil)
}

func buildOutputPipeline(client *store.Client) *guard.OutputPipeline {
	maskingService := masking.NewService()
	bus := &rules.InvalidationBus{}
	ruleCache := rules.NewCache(store.NewRuleSource(client), bus, ruleCacheRefreshInterval)

	outStages := []guard.OutputStage{
		outputstages.NewCanaryTokenDetection(),
		outputstages.NewPIIMasking(maskingService),
		outputstages.NewStaticRegex(nil),
		outputstages.NewRuleEvaluation(ruleCache),
	}
	return guard.NewOutputPipeline(outStages)
}

// externalAgentCore is a placeholder for the ReAct loop and LLM provider
// integration this module treats as an external collaborator (§1
// Non-goals): the platform wires its real implementation in here at
// build time. It only needs to satisfy orchestrator.AgentCore.
type externalAgentCore struct{}

func (c *externalAgentCore) Execute(ctx context.Context, agentCtx *hook.Context, text string) (orchestrator.AgentOutput, error) {
	return orchestrator.AgentOutput{}, context.Canceled
}
