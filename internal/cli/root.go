// Package cli implements imagectl, the operator tool for candidate lists,
// size hints, placeholders, offline compression, delivery dry runs and
// catalog maintenance.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/pkg/logger"
)

var version = "dev"

// SetVersion sets the version reported by "imagectl version"
func SetVersion(v string) {
	version = v
}

type globalOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the imagectl command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "imagectl",
		Short: "Image delivery tooling for New Manyatta Kenya",
		Long: `imagectl generates responsive image markup, compresses images under the
site's size budgets and maintains the property catalog.

Examples:
  imagectl srcset /assets/villa/1 --format jpg
  imagectl sizes hero
  imagectl compress "public/assets/Laurel Hill Suites/L6 Sauna.jpg" -o sauna.jpg
  imagectl render /assets/villa/1.jpg --priority --context hero
  imagectl seed --config config/config.yaml`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./config.yaml, ./config/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newVersionCmd(),
		newSrcSetCmd(),
		newSizesCmd(),
		newPictureCmd(),
		newPlaceholderCmd(opts),
		newCompressCmd(opts),
		newRenderCmd(opts),
		newSeedCmd(opts),
		newMigrateCmd(opts),
		newHealthCmd(),
	)
	return root
}

// Execute runs imagectl with the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "imagectl %s\n", version)
		},
	}
}

// load reads the configuration and builds a console logger on stderr
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:       level,
		Format:      "console",
		OutputPaths: []string{"stderr"},
		Service:     "imagectl",
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func writeLine(w io.Writer, a ...interface{}) {
	_, _ = fmt.Fprintln(w, a...)
}
