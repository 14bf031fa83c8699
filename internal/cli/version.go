package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rgbfix version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, "rgbfix", version)
		},
	}
}
