package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
)

func newSrcSetCmd() *cobra.Command {
	var (
		format string
		widths []int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "srcset <base>",
		Short: "Print the srcset candidate list for an image base path",
		Long: `Prints "{base}-{w}w.{format} {w}w" candidates joined by ", ".
A trailing extension on base is stripped.

Examples:
  imagectl srcset /assets/villa/1.jpg
  imagectl srcset /assets/villa/1 --format jpg --widths 480,1024
  imagectl srcset /assets/villa/1 --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, w := range widths {
				if w <= 0 {
					return fmt.Errorf("widths must be positive, got %d", w)
				}
			}
			base := performance.StripExtension(args[0])

			if all {
				out, err := json.MarshalIndent(performance.GenerateMultiFormatSrcSet(base, widths), "", "  ")
				if err != nil {
					return err
				}
				writeLine(cmd.OutOrStdout(), string(out))
				return nil
			}

			writeLine(cmd.OutOrStdout(), performance.GenerateSrcSet(base, strings.ToLower(format), widths))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", performance.FormatWebP, "candidate format")
	cmd.Flags().IntSliceVarP(&widths, "widths", "w", performance.DefaultWidths(), "candidate widths in order")
	cmd.Flags().BoolVar(&all, "all", false, "print WebP and JPEG lists as JSON")
	return cmd
}

func newSizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sizes [context]",
		Short:     "Print the sizes hint for a usage context",
		Long:      "Without an argument every context is listed.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: contextNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, c := range imagery.UsageContexts() {
					writeLine(out, fmt.Sprintf("%-10s %s", c, performance.SizesFor(c)))
				}
				return nil
			}

			c, err := imagery.ParseUsageContext(args[0])
			if err != nil {
				return err
			}
			writeLine(out, performance.SizesFor(c))
			return nil
		},
	}
}

func newPictureCmd() *cobra.Command {
	var alt, class string

	cmd := &cobra.Command{
		Use:   "picture <base>",
		Short: "Print <picture> markup with WebP and JPEG sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := performance.PictureHTML(performance.StripExtension(args[0]), alt, class)
			if err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), html)
			return nil
		},
	}
	cmd.Flags().StringVar(&alt, "alt", "", "alternative text")
	cmd.Flags().StringVar(&class, "class", "", "CSS class")
	return cmd
}

func newPlaceholderCmd(opts *globalOptions) *cobra.Command {
	var width, height int
	var color string

	cmd := &cobra.Command{
		Use:   "placeholder",
		Short: "Print the blur placeholder data URI",
		Long:  "Dimensions and colour default to the configured placeholder.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("color") {
				if cfg, _, err := opts.load(); err == nil {
					color = cfg.Images.PlaceholderColor
					if !cmd.Flags().Changed("width") {
						width = cfg.Images.PlaceholderWidth
					}
					if !cmd.Flags().Changed("height") {
						height = cfg.Images.PlaceholderHeight
					}
				}
			}
			writeLine(cmd.OutOrStdout(), imagery.BlurPlaceholder(width, height, color))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", imagery.DefaultPlaceholderWidth, "placeholder width")
	cmd.Flags().IntVar(&height, "height", imagery.DefaultPlaceholderHeight, "placeholder height")
	cmd.Flags().StringVar(&color, "color", imagery.DefaultPlaceholderColor, "fill colour")
	return cmd
}

func contextNames() []string {
	contexts := imagery.UsageContexts()
	names := make([]string, len(contexts))
	for i, c := range contexts {
		names[i] = string(c)
	}
	return names
}
