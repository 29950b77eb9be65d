package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/pipeline"
	"github.com/GabrielNunesIT/logbot/internal/shipper"
)

// NewRunCmd creates the run command.
func NewRunCmd(cfgFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start logbot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, cfgFile, logLevel)
		},
	}

	// Ingestor flags
	cmd.Flags().Bool("stdin", false, "enable stdin ingestor")
	cmd.Flags().StringSlice("file", nil, "file paths to tail (enables file ingestor)")
	cmd.Flags().String("listen", "", "tcp address to accept lines on (enables listen ingestor)")

	// Shipper and emitter flags
	cmd.Flags().StringSlice("collector", nil, "collector host:port (repeatable, replaces configured collectors)")
	cmd.Flags().Bool("console", false, "enable console emitter")
	cmd.Flags().String("console-format", "", "console output format (text, json)")

	// Hot-reload flag
	cmd.Flags().Bool("hot-reload", true, "enable hot-reload of config file")

	return cmd
}

func runPipeline(cmd *cobra.Command, cfgFile, logLevel *string) error {
	log := SetupLogging(*logLevel)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := applyCLIOverrides(cmd, cfg); err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		log.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	log.Infof("starting logbot: ingestors=%d, emitters=%d, collectors=%d",
		p.IngestorCount(), p.EmitterCount(), len(cfg.Shipper.Collectors))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	var watcher *config.ConfigWatcher
	hotReloadEnabled, _ := cmd.Flags().GetBool("hot-reload")
	if *cfgFile != "" && hotReloadEnabled {
		watcher = startConfigWatcher(ctx, cmd, cfgFile, p, log)
	}

	go handleSignals(ctx, cancel, sigChan, cmd, cfgFile, watcher, p, log)

	notifySystemd(log, daemon.SdNotifyReady)
	defer notifySystemd(log, daemon.SdNotifyStopping)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info("logbot stopped")
	return nil
}

// notifySystemd reports a state change when running under systemd with Type=notify.
func notifySystemd(log logging.ILogger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warningf("systemd notify failed: %v", err)
		return
	}
	if sent {
		log.Debugf("systemd notified: %s", state)
	}
}

func startConfigWatcher(ctx context.Context, cmd *cobra.Command, cfgFile *string, p *pipeline.Pipeline, log logging.ILogger) *config.ConfigWatcher {
	watcher := config.NewConfigWatcher(*cfgFile, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warningf("failed to start config watcher: %v", err)
		return nil
	}

	log.Infof("hot-reload enabled: config=%s", *cfgFile)

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				applyConfig(cmd, newCfg, p, log)
			case err := <-watcher.Errors():
				log.Errorf("config watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return watcher
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, cmd *cobra.Command, cfgFile *string, watcher *config.ConfigWatcher, p *pipeline.Pipeline, log logging.ILogger) {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info("received SIGHUP, reloading config")
				notifySystemd(log, daemon.SdNotifyReloading)
				if watcher != nil {
					// The watcher delivers the result on its channels.
					watcher.Reload()
				} else {
					newCfg, err := config.Load(*cfgFile)
					if err != nil {
						log.Errorf("failed to reload config: %v", err)
					} else {
						applyConfig(cmd, newCfg, p, log)
					}
				}
				notifySystemd(log, daemon.SdNotifyReady)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received shutdown signal: %v", sig)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func applyConfig(cmd *cobra.Command, cfg *config.Config, p *pipeline.Pipeline, log logging.ILogger) {
	if err := applyCLIOverrides(cmd, cfg); err != nil {
		log.Errorf("reconfigure failed: %v", err)
		return
	}
	if err := p.Reconfigure(cfg); err != nil {
		log.Errorf("reconfigure failed: %v", err)
	}
}

func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if v, _ := cmd.Flags().GetBool("stdin"); v {
		cfg.Ingestors.Stdin.Enabled = true
	}
	if files, _ := cmd.Flags().GetStringSlice("file"); len(files) > 0 {
		cfg.Ingestors.File.Enabled = true
		cfg.Ingestors.File.Paths = files
	}
	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		cfg.Ingestors.Listen.Enabled = true
		cfg.Ingestors.Listen.Protocol = "tcp"
		cfg.Ingestors.Listen.Address = addr
	}
	if collectors, _ := cmd.Flags().GetStringSlice("collector"); len(collectors) > 0 {
		cfg.Shipper.Collectors = nil
		for _, c := range collectors {
			ep, err := shipper.ParseEndpoint(c)
			if err != nil {
				return fmt.Errorf("--collector %q: %w", c, err)
			}
			cfg.Shipper.Collectors = append(cfg.Shipper.Collectors, config.CollectorConfig{Host: ep.Host, Port: ep.Port})
		}
		cfg.Emitters.Syslog.Enabled = true
	}
	if v, _ := cmd.Flags().GetBool("console"); v {
		cfg.Emitters.Console.Enabled = true
	}
	if format, _ := cmd.Flags().GetString("console-format"); format != "" {
		cfg.Emitters.Console.Format = format
	}
	return nil
}
