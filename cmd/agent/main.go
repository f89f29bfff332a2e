package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/broker"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/config"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/csvlog"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/metrics"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/risk"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/scheduler"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/stop"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/strategy"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("AGENT_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	log := util.NewLogger(os.Getenv("AGENT_LOG_LEVEL"))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if os.Getenv("AGENT_LOG_LEVEL") == "" {
		if cfg.App.Env == "dev" {
			log = util.NewConsoleLogger(cfg.App.LogLevel)
		} else {
			log = util.NewLogger(cfg.App.LogLevel)
		}
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	raw, err := broker.New(ctx, cfg.Broker.Provider, broker.Options{
		GatewayURL: cfg.Broker.GatewayURL,
		StreamURL:  cfg.Broker.StreamURL,
		Symbol:     cfg.Trading.Symbol,
		Timeout:    time.Duration(cfg.Broker.TimeoutMs) * time.Millisecond,
		DefaultConstraints: broker.Constraints{
			StopsLevel: cfg.Broker.DefaultStopsLevel,
			Point:      cfg.Broker.DefaultPoint,
		},
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("broker connect")
	}
	client := broker.NewReliable(raw, broker.ReliabilityParams{
		CallTimeout: time.Duration(cfg.Broker.TimeoutMs) * time.Millisecond,
		RateLimit:   rate.Limit(cfg.Broker.RateLimit),
		MaxRetries:  cfg.Broker.MaxRetries,
		BreakAfter:  cfg.Broker.BreakAfter,
		Cooldown:    time.Duration(cfg.Broker.CooldownSecs) * time.Second,
	}, log)
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("broker close")
		}
	}()

	constraints, err := client.SymbolConstraints(ctx, cfg.Trading.Symbol)
	if err != nil {
		log.Fatal().Err(err).Str("sym", cfg.Trading.Symbol).Msg("symbol constraints unavailable")
	}
	minStop := constraints.MinStopPrice(cfg.Stop.MinStopDefault)
	log.Info().Float64("min_stop", minStop).Float64("point", constraints.Point).Msg("symbol constraints loaded")

	sizer, err := stop.Build(cfg.Stop.Policy, stop.Params{
		Multiplier:    cfg.Stop.Multiplier,
		VarianceFloor: cfg.Stop.VarianceFloor,
		BrokerMinStop: minStop,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("stop policy")
	}

	ticks, err := csvlog.OpenTickLog(cfg.Logs.TickPath)
	if err != nil {
		log.Fatal().Err(err).Msg("tick log")
	}
	defer ticks.Close()
	decisions, err := csvlog.OpenDecisionLog(cfg.Logs.DecisionPath)
	if err != nil {
		log.Fatal().Err(err).Msg("decision log")
	}
	defer decisions.Close()
	orders, err := csvlog.OpenOrderLog(cfg.Logs.OrderPath)
	if err != nil {
		log.Fatal().Err(err).Msg("order log")
	}
	defer orders.Close()

	sched := scheduler.New(scheduler.Config{
		Symbol:     cfg.Trading.Symbol,
		Volume:     cfg.Trading.Volume,
		BatchSize:  cfg.Trading.BatchSize,
		Lookback:   time.Duration(cfg.Trading.LookbackSecs) * time.Second,
		Interval:   time.Duration(cfg.Trading.IntervalSecs) * time.Second,
		Iterations: cfg.Trading.Iterations,
	}, scheduler.Deps{
		Broker:    client,
		Estimator: strategy.NewEstimator(cfg.Trading.WindowSize, cfg.Trading.SlopeThreshold),
		Sizer:     sizer,
		Builder:   execution.NewBuilder(cfg.Trading.Symbol, cfg.Trading.Volume, constraints.Point),
		Limits:    risk.Limits{MaxVolumePerOrder: cfg.Risk.MaxVolumePerOrder},
		Ticks:     ticks,
		Decisions: decisions,
		Orders:    orders,
		Log:       log,
	})

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("polling loop stopped")
		return
	}
	log.Info().Msg("shutting down")
}
