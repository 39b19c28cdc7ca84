package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/infrastructure/cache"
	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/fetch"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/memory"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

type compressOptions struct {
	output   string
	priority bool
	quality  float64
}

func newCompressCmd(opts *globalOptions) *cobra.Command {
	co := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "compress <source>",
		Short: "Compress an image under the priority or lazy budget",
		Long: `Runs one compression attempt the way the API does and writes the result.

Sources may be local files, site paths under assets.url_prefix (resolved
against assets.root), http(s) URLs or s3://bucket/key. Lazy images are
capped at 1024px and 0.3 MiB, priority images at 1920px and 0.5 MiB.

Examples:
  imagectl compress public/assets/villa/1.jpg
  imagectl compress /assets/villa/1.jpg --priority -o hero.jpg
  imagectl compress https://assets.newmanyatta.co.ke/villa/1.jpg -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runCompress(cmd, cfg, log, co, args[0])
		},
	}
	cmd.Flags().StringVarP(&co.output, "output", "o", "", `output file, "-" for stdout (default: <name>.min<ext> in the working directory)`)
	cmd.Flags().BoolVarP(&co.priority, "priority", "p", false, "use the priority budget")
	cmd.Flags().Float64VarP(&co.quality, "quality", "q", 0, "starting quality in (0, 1] (default: images.quality)")
	return cmd
}

func runCompress(cmd *cobra.Command, cfg *config.Config, log *zap.Logger, co *compressOptions, src string) error {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	quality := cfg.Images.Quality
	if co.quality > 0 {
		quality = co.quality
	}

	store := cache.NewBlobStore(memory.NewCacheRepository(4), nil, 0, log)
	pipeline := newPipeline(cfg, fetcher, store, quality, log)

	result := pipeline.Compress(cmd.Context(), src, co.priority)
	switch {
	case result.Skipped:
		return fmt.Errorf("%s carries its bytes inline, nothing to compress", truncate(src, 40))
	case result.Fallback:
		return fmt.Errorf("compression failed: %w", result.Err)
	}

	output := co.output
	if output == "" {
		output = defaultOutput(src)
	}
	if output == "" {
		return fmt.Errorf("cannot derive an output name from %s, pass --output", src)
	}

	if output == "-" {
		_, err = cmd.OutOrStdout().Write(result.Blob.Data)
		return err
	}
	if err := os.WriteFile(output, result.Blob.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	profile := "lazy"
	if co.priority {
		profile = "priority"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s -> %s (%s, %dx%d, %s profile)\n",
		output,
		formatBytes(result.OriginalBytes),
		formatBytes(result.Blob.Size()),
		savings(result.OriginalBytes, result.Blob.Size()),
		result.Width, result.Height,
		profile,
	)
	return nil
}

// newPipeline builds the compression pipeline from the images section,
// starting at quality
func newPipeline(cfg *config.Config, fetcher outbound.ImageFetcher, store outbound.BlobStore, quality float64, log *zap.Logger) *performance.Pipeline {
	return performance.NewPipeline(fetcher, store, performance.CompressionConfig{
		Quality:          quality,
		MaxWidth:         cfg.Images.MaxWidth,
		LazyMaxDimension: cfg.Images.LazyMaxDimension,
		PriorityMaxBytes: cfg.Images.PriorityMaxBytes,
		LazyMaxBytes:     cfg.Images.LazyMaxBytes,
		MaxPixels:        cfg.Images.MaxPixels(),
		Timeout:          cfg.Images.CompressTimeout,
	}, nil, log)
}

// newFetcher reads local files and site paths from disk and everything
// else from its network origin
func newFetcher(cfg *config.Config) (outbound.ImageFetcher, error) {
	httpFetcher, err := fetch.NewHTTPFetcher(cfg.Assets.PublicURL, cfg.Images.FetchTimeout, cfg.Images.MaxSourceBytes, cfg.Images.AllowedHosts, nil)
	if err != nil {
		return nil, err
	}
	var s3Fetcher outbound.ImageFetcher
	if cfg.Storage.Bucket != "" {
		f, err := fetch.NewS3Fetcher(cfg.Storage, cfg.Images.MaxSourceBytes, nil)
		if err != nil {
			return nil, err
		}
		s3Fetcher = f
	}

	return &localFirst{
		local:  fetch.NewFileFetcher(cfg.Assets.Root, cfg.Assets.URLPrefix, cfg.Images.MaxSourceBytes, nil),
		remote: fetch.NewRouter(httpFetcher, s3Fetcher),
	}, nil
}

type localFirst struct {
	local  *fetch.FileFetcher
	remote outbound.ImageFetcher
}

func (f *localFirst) Fetch(ctx context.Context, src string) (*outbound.Blob, error) {
	if fetch.IsRemote(src) {
		return f.remote.Fetch(ctx, src)
	}
	return f.local.Fetch(ctx, src)
}

// defaultOutput names the result "<name>.min<ext>" in the working directory
func defaultOutput(src string) string {
	name := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		name = u.Path
	}
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "/" || name == "." {
		return ""
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + ".min" + ext
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func savings(original, output int) string {
	if original <= 0 || output >= original {
		return "unchanged"
	}
	return fmt.Sprintf("%.0f%% smaller", 100*float64(original-output)/float64(original))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
