package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/pipeline"
	"github.com/GabrielNunesIT/logbot/internal/shipper"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			p, err := pipeline.New(cfg, logging.Discard())
			if err != nil {
				return fmt.Errorf("pipeline configuration error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Ingestors: %d enabled\n", p.IngestorCount())
			fmt.Fprintf(out, "  Emitters:  %d enabled\n", p.EmitterCount())
			if cfg.Emitters.Syslog.Enabled {
				fmt.Fprintf(out, "  Collectors:\n")
				for _, c := range cfg.Shipper.Collectors {
					fmt.Fprintf(out, "    %s\n", shipper.Endpoint{Host: c.Host, Port: c.Port})
				}
			}
			return nil
		},
	}
}
