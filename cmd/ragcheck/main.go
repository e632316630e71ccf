// =============================================================================
// ragcheck 主入口
// =============================================================================
// AI 助理回复检索质量验证工具
//
// 使用方法:
//
//	ragcheck run --config ragcheck.yaml --input questions.csv --output results.csv
//	ragcheck chatbots --config ragcheck.yaml   # 列出可用聊天机器人（连通性检查）
//	ragcheck version                           # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/ragcheck/client"
	"github.com/BaSui01/ragcheck/config"
	"github.com/BaSui01/ragcheck/conversation"
	"github.com/BaSui01/ragcheck/internal/metrics"
	"github.com/BaSui01/ragcheck/internal/telemetry"
	"github.com/BaSui01/ragcheck/textmatch"
	"github.com/BaSui01/ragcheck/validator"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runValidation(os.Args[2:])
	case "chatbots":
		runListChatbots(os.Args[2:])
	case "version":
		fmt.Printf("ragcheck %s (built %s)\n", Version, BuildTime)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  ragcheck run --config <file> --input <csv> [--output <csv>]
  ragcheck chatbots --config <file>
  ragcheck version`)
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runValidation(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	inputPath := fs.String("input", "", "Input CSV with validation rows")
	outputPath := fs.String("output", "validation_results.csv", "Output CSV path")
	fs.Parse(args)

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting ragcheck",
		zap.String("version", Version),
		zap.String("input", *inputPath))

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if otelProviders != nil {
			_ = otelProviders.Shutdown(context.Background())
		}
	}()

	// 输入记录在任何派发之前加载，字段缺失即中止
	records, err := loadRecords(*inputPath)
	if err != nil {
		logger.Fatal("failed to load input records", zap.Error(err))
	}
	logger.Info("input loaded", zap.Int("rows", len(records)))

	collector := metrics.NewCollector(cfg.Metrics.Namespace, nil, logger)
	api := client.NewClient(client.Config{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.APIKey,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	}, collector, logger)
	remote := client.NewRetryingClient(api, client.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.Retry.BackoffBase,
	}, collector, logger)

	conv := conversation.NewManager(cfg.Validation.ChainContext, logger)
	orch := validator.New(remote, conv, validator.Options{
		ChatbotID:        cfg.API.ChatbotID,
		KnowledgeBaseIDs: cfg.Validation.KnowledgeBaseIDs,
		Concurrency:      cfg.Validation.Concurrency,
		RequestDelay:     cfg.Validation.RequestDelay,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		Threshold:        cfg.Validation.SimilarityThreshold,
		TopK:             cfg.Validation.TopK,
		Separators:       cfg.Validation.Separators,
		Mode:             textmatch.Mode(cfg.Validation.SimilarityMode),
	}, validator.Hooks{
		OnProgress: func(completed, total int, message string) {
			fmt.Printf("\r[%d/%d] %s", completed, total, message)
		},
	}, collector, logger)

	// Ctrl-C 触发协作式停止：在途调用完成，未处理行标记为中断
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("stop requested, letting in-flight calls finish")
		orch.Stop()
	}()

	report, err := orch.Run(ctx, records)
	fmt.Println()
	if err != nil {
		logger.Fatal("validation run failed", zap.Error(err))
	}

	if err := writeResults(*outputPath, report, cfg.Validation.Separators); err != nil {
		logger.Fatal("failed to write results", zap.Error(err))
	}
	printSummary(report)
	logger.Info("results written", zap.String("output", *outputPath))
}

func runListChatbots(args []string) {
	fs := flag.NewFlagSet("chatbots", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	api := client.NewClient(client.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.API.Timeout,
	}, nil, logger)

	bots, err := api.ListChatbots(context.Background())
	if err != nil {
		logger.Fatal("failed to list chatbots", zap.Error(err))
	}
	for _, b := range bots {
		fmt.Printf("%s\t%s\n", b.ID, b.Name)
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
