package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	scmd "github.com/ehrlich-b/go-scmd"
)

func newFlagsCommand() *cobra.Command {
	var names string

	cmd := &cobra.Command{
		Use:   "flags <value>",
		Short: "Render a command flags value",
		Long: `Render a flags bitmask the way a busy file shows it. Bits without a
name print as their position. --names replaces the default table, e.g.
--names 0=TAGGED,1=INITIALIZED,4=NOWAIT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("parse flags %q: %w", args[0], err)
			}
			table := scmd.DefaultFlagTable
			if names != "" {
				table, err = parseFlagNames(names)
				if err != nil {
					return err
				}
			}
			return writeLine(cmd, scmd.FlagsString(scmd.Flags(value), table))
		},
	}
	cmd.Flags().StringVar(&names, "names", "", "Comma-separated bit=name pairs")
	return cmd
}

func parseFlagNames(spec string) (*scmd.FlagTable, error) {
	names := make(map[int]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		bitStr, name, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("flag name %q: want bit=name", pair)
		}
		bit, err := strconv.Atoi(strings.TrimSpace(bitStr))
		if err != nil || bit < 0 || bit >= 64 {
			return nil, fmt.Errorf("flag name %q: bit must be 0-63", pair)
		}
		names[bit] = strings.TrimSpace(name)
	}
	return scmd.NewFlagTable(names), nil
}

func writeLine(cmd *cobra.Command, line string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), line)
	return err
}
