package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/semperai/amica-bridge/internal/chat"
	"github.com/semperai/amica-bridge/internal/config"
	"github.com/semperai/amica-bridge/internal/hooks"
	"github.com/semperai/amica-bridge/internal/realtime"
	"github.com/semperai/amica-bridge/internal/rpc"
	"github.com/semperai/amica-bridge/internal/scenario"
	"github.com/semperai/amica-bridge/internal/server"
	"github.com/semperai/amica-bridge/internal/viewer"
)

var (
	serveHTTPPort int
	serveWSPort   int
	serveScenario string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge",
	Long: `Start the bridge with both transports:

  - HTTP POST JSON-RPC on server.port (default 8080)
  - WebSocket JSON-RPC on websocket.port (default 8765)`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&serveHTTPPort, "port", "p", config.DefaultPort, "HTTP port to listen on")
	serveCmd.Flags().IntVar(&serveWSPort, "ws-port", config.DefaultWSPort, "WebSocket port to listen on")
	serveCmd.Flags().StringVar(&serveScenario, "scenario", "", "Path to scenario file")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serveHTTPPort
	}
	if cmd.Flags().Changed("ws-port") {
		cfg.WebSocket.Port = serveWSPort
	}
	if cmd.Flags().Changed("scenario") {
		cfg.Scenario.Path = serveScenario
	}

	setupLogging(&cfg.Logging)

	engine := hooks.NewEngine(hooks.WithDefaultTimeout(cfg.Hooks.DefaultTimeout))
	engine.SetEnabled(cfg.Hooks.Enabled)

	chatMgr := chat.NewManager(engine, chat.EchoProvider{})
	view := viewer.New(engine)
	store := scenario.NewStore(engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scenario.Path != "" {
		if err := store.Load(ctx, cfg.Scenario.Path); err != nil {
			log.Warn().Err(err).Str("path", cfg.Scenario.Path).Msg("Failed to load scenario")
		} else if cfg.Scenario.Watch {
			if err := store.Watch(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to watch scenario file")
			}
		}
	}
	defer store.Close()

	dispatcher := rpc.NewDispatcher(&rpc.Deps{
		Hooks:    engine,
		Chat:     chatMgr,
		Viewer:   view,
		Scenario: store,
	})

	broker := realtime.NewBroker(&realtime.BrokerConfig{
		MaxConnections:    cfg.WebSocket.MaxConnections,
		HeartbeatInterval: cfg.WebSocket.HeartbeatInterval,
		SendBuffer:        cfg.WebSocket.SendBuffer,
		MaxMessageSize:    cfg.WebSocket.MaxMessageSize,
	})
	realtime.RegisterForwarders(engine, broker)

	if len(cfg.Scheduler.Triggers) > 0 {
		sched, err := scenario.NewScheduler(engine, toTriggers(cfg.Scheduler.Triggers))
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.Info().Int("triggers", len(cfg.Scheduler.Triggers)).Msg("Scheduler started")
	}

	srv := server.New(cfg, dispatcher, broker)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Warn().Err(err).Msg("No config file found, using defaults")
		return config.Default(), nil
	}
	return cfg, nil
}

func toTriggers(configured []config.TriggerConfig) []scenario.Trigger {
	triggers := make([]scenario.Trigger, len(configured))
	for i, t := range configured {
		triggers[i] = scenario.Trigger{
			Cron:    t.Cron,
			Event:   t.Event,
			Payload: t.Payload,
		}
	}
	return triggers
}
