package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/logbot/internal/irc"
)

// NewRenderCmd creates the render command, which prints shipped records as an irssi style log.
func NewRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [file]",
		Short: "Render shipped IRC records as a readable channel log",
		Long: `render reads records, one per line, either as bare JSON objects or as shipped
lines ("Jan 02 15:04:05 {...}"), and prints them as an irssi style log.
Reads stdin when no file is given. Lines without a record are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			records, err := readRecords(in)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), irc.FormatLog(records))
			return err
		},
	}
}

func readRecords(r io.Reader) ([]map[string]any, error) {
	var records []map[string]any
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, err := irc.ParseRecordLine(scanner.Text())
		if errors.Is(err, irc.ErrNoRecord) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}
