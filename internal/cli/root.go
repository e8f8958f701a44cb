package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

// RootCmd returns the gardencore command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "gardencore",
		Short:   "Native landscape design engine",
		Version: Version,
		Long: `gardencore matches a native plant catalog against the sun, water and soil
zones of a site and proposes a planting design.

Configuration comes from GARDENCORE_* environment variables, optionally
loaded from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", "", "dotenv file to load before reading the environment")

	root.AddCommand(PlantsCmd())
	root.AddCommand(SiteCmd())
	root.AddCommand(GenerateCmd())
	root.AddCommand(DesignCmd())
	root.AddCommand(ServeCmd())
	return root
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	dim      = color.New(color.FgHiBlack)
	heading  = color.New(color.Bold)
)

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
