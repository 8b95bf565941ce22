package main

import (
	"fmt"

	"github.com/spf13/cobra"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/cdb"
)

func newCDBCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "cdb <hex>...",
		Short: "Render and decode a command descriptor block",
		Example: `  scmd cdb 28 00 00 00 10 00 00 00 08 00
  scmd cdb 2a000000000700000100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bytes, err := cdb.ParseHex(args...)
			if err != nil {
				return err
			}

			var formatter scmd.CDBFormatter = cdb.Formatter{}
			if raw {
				formatter = scmd.HexCDB
			}
			var buf [scmd.CDBDisplayBuffer]byte
			text := formatter.AppendCDB(buf[:0], bytes)
			if err := writeLine(cmd, string(text)); err != nil {
				return err
			}

			req, err := cdb.Decode(bytes)
			if err != nil {
				return writeLine(cmd, "decode: "+err.Error())
			}
			line := fmt.Sprintf("class=%s lba=%d blocks=%d", req.Op, req.LBA, req.Blocks)
			if req.Same {
				line += " same"
			}
			if req.Unmap {
				line += " unmap"
			}
			return writeLine(cmd, line)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Render bytes without opcode names")
	return cmd
}
