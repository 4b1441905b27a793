package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bedrockhome/agent/pkg/agent"
	"github.com/bedrockhome/agent/pkg/config"
	"github.com/bedrockhome/agent/pkg/conversation"
	"github.com/bedrockhome/agent/pkg/homeassistant"
	"github.com/bedrockhome/agent/pkg/llm"
	"github.com/bedrockhome/agent/pkg/logging"
	"github.com/bedrockhome/agent/pkg/metrics"
	"github.com/bedrockhome/agent/pkg/prompt"
	"github.com/bedrockhome/agent/pkg/providers/bedrock"
	"github.com/bedrockhome/agent/pkg/redact"
	"github.com/bedrockhome/agent/pkg/runner"
	"github.com/bedrockhome/agent/pkg/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	observer := buildObserver(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	adapter, err := bedrock.New(ctx, bedrock.Config{
		Region:          cfg.AWS.Region,
		ModelID:         cfg.Model.ID,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
		RequestTimeout:  cfg.Model.RequestTimeout(),
	})
	cancel()
	if err != nil {
		return err
	}
	logger.Info("model_ready", "model_id", cfg.Model.ID, "family", adapter.Family().String())

	composer, err := prompt.NewComposer(cfg.Prompt.Language)
	if err != nil {
		return err
	}

	haClient := homeassistant.NewClient(homeassistant.ClientConfig{
		BaseURL: cfg.Host.BaseURL,
		Token:   cfg.Host.Token,
	}, logging.NewComponentLogger(logger, "home_assistant"))

	// Prefer the websocket state cache; fall back to REST polling when
	// the websocket is unavailable.
	var states homeassistant.StatesSource = haClient
	var ws *homeassistant.WSClient
	var areas map[string]string
	if cfg.Host.WebsocketURL != "" {
		ws = homeassistant.NewWSClient(cfg.Host.WebsocketURL, cfg.Host.Token,
			logging.NewComponentLogger(logger, "home_assistant_ws"))
		wsCtx, wsCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := ws.Connect(wsCtx); err != nil {
			logger.Warn("ws_connect_error", "error", err, "fallback", "rest polling")
			ws = nil
		} else {
			states = ws
			if a, areaErr := ws.EntityAreas(wsCtx); areaErr == nil {
				areas = a
			} else {
				logger.Warn("area_registry_error", "error", areaErr)
			}
		}
		wsCancel()
	}
	registry := homeassistant.NewRegistry(states, homeassistant.RegistryConfig{
		ExposedDomains:  cfg.Host.ExposedDomains,
		ExtraAttributes: cfg.Prompt.ExtraAttributes,
	})
	registry.SetAreas(areas)

	tool := homeassistant.NewServiceTool(haClient)
	loop := agent.NewLoop(adapter, tool, llm.Params{
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		TopP:        cfg.Model.TopP,
		TopK:        cfg.Model.TopK,
	}, cfg.Tools.MaxIterations,
		agent.WithObserver(observer),
		agent.WithLogger(logging.NewComponentLogger(logger, "agent")))

	store := conversation.NewStore(cfg.Memory.SessionTTL())

	srv := server.New(server.Config{
		Port:                 cfg.Server.Port,
		Language:             cfg.Prompt.Language,
		Template:             cfg.Prompt.Template,
		RefreshPromptPerTurn: cfg.Prompt.RefreshPerTurn,
		RememberConversation: cfg.Memory.RememberConversation,
		RememberInteractions: cfg.Memory.RememberInteractions,
		RetryAttempts:        cfg.Server.RetryAttempts,
		RetryBackoff:         time.Duration(cfg.Server.RetryBackoffMS) * time.Millisecond,
	}, loop, store, composer, registry,
		server.WithObserver(observer),
		server.WithLogger(logging.NewComponentLogger(logger, "server")))

	lifecycle := runner.NewLifecycleRunner(srv, runner.Hooks{
		OnStart: func() {
			go func() {
				if err := srv.Listen(); err != nil {
					logger.Error("server_error", "error", err)
				}
			}()
		},
		OnStop: func() {
			if ws != nil {
				_ = ws.Close()
			}
			if closer, ok := observer.(*metrics.AsyncObserver); ok {
				closer.Close()
			}
			logger.Info("shutdown_complete")
		},
	}, 30*time.Second)

	return lifecycle.Run(context.Background())
}

func buildObserver(cfg config.Config, logger *slog.Logger) metrics.Observer {
	if !cfg.Metrics.Enabled {
		return metrics.NoopObserver{}
	}
	if cfg.Metrics.Path == "" {
		return metrics.NewAsyncObserver(metrics.NewJSONLObserver(os.Stdout), 256)
	}
	f, err := os.OpenFile(cfg.Metrics.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("metrics_file_error", "path", cfg.Metrics.Path, "error", err)
		return metrics.NoopObserver{}
	}
	return metrics.NewAsyncObserver(metrics.NewJSONLObserver(f), 256)
}
