// Package cli is the phylomovie command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/brancharchitect/phylomovie/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	noColor bool

	// Build information, set via ldflags.
	Version = "dev"
	Commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "phylomovie",
	Short: "Watch phylogenetic tree transitions as a movie",
	Long: `phylomovie plays an interpolated sequence of phylogenetic trees as a
scrubbable timeline: anchor trees connected by transition segments, with
the jumping subtrees and the pivot edge highlighted as they move.

Quick start:
  phylomovie play movie.json            # Open the viewer
  phylomovie play movie.json --watch    # Reload when the file changes
  phylomovie info movie.json            # Summarize a payload
  phylomovie colors set Mammals "#ff8800"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/phylomovie/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newColorsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phylomovie %s (%s)\n", Version, Commit)
		},
	}
}
