package cli

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/application/delivery"
	"github.com/newmanyatta/manyatta/internal/domain/imagery"
	"github.com/newmanyatta/manyatta/internal/domain/shared"
	"github.com/newmanyatta/manyatta/internal/infrastructure/cache"
	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/memory"
)

type renderOptions struct {
	alt            string
	context        string
	priority       bool
	fill           bool
	width          int
	height         int
	offset         float64
	viewportWidth  float64
	viewportHeight float64
}

// renderReport is what one simulated page view produced
type renderReport struct {
	Mounted  imagery.Element  `json:"mounted"`
	Visible  bool             `json:"visible"`
	Final    imagery.Element  `json:"final"`
	Snapshot imagery.Snapshot `json:"snapshot"`
	OnLoad   int              `json:"on_load"`
	Events   []string         `json:"events"`
}

func newRenderCmd(opts *globalOptions) *cobra.Command {
	ro := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <source>",
		Short: "Mount an image the way a page does and report its delivery",
		Long: `Mounts one image, lays it out --offset pixels from the top of the
viewport, lets compression settle and reports the element before and after
as JSON. Priority images compress at once; the rest only once they come
within images.root_margin of the viewport.

Examples:
  imagectl render /assets/villa/1.jpg --priority --context hero
  imagectl render /assets/villa/2.jpg --offset 2400
  imagectl render public/assets/villa/3.jpg --fill --alt "Sun deck"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runRender(cmd, cfg, log, ro, args[0])
		},
	}
	cmd.Flags().StringVar(&ro.alt, "alt", "", "alternative text")
	cmd.Flags().StringVar(&ro.context, "context", imagery.ContextCard.String(), "usage context: hero, card, thumbnail, logo or icon")
	cmd.Flags().BoolVarP(&ro.priority, "priority", "p", false, "above the fold: load eagerly and compress on mount")
	cmd.Flags().BoolVar(&ro.fill, "fill", false, "fill the container with a placeholder base layer")
	cmd.Flags().IntVar(&ro.width, "width", 0, "intrinsic width")
	cmd.Flags().IntVar(&ro.height, "height", 0, "intrinsic height")
	cmd.Flags().Float64Var(&ro.offset, "offset", 0, "distance of the image from the top of the viewport in px")
	cmd.Flags().Float64Var(&ro.viewportWidth, "viewport-width", 1280, "viewport width in px")
	cmd.Flags().Float64Var(&ro.viewportHeight, "viewport-height", 800, "viewport height in px")
	return cmd
}

func runRender(cmd *cobra.Command, cfg *config.Config, log *zap.Logger, ro *renderOptions, src string) error {
	usage, err := imagery.ParseUsageContext(ro.context)
	if err != nil {
		return fmt.Errorf("unknown context %q", ro.context)
	}

	reqOpts := []imagery.RequestOption{imagery.WithSize(ro.width, ro.height)}
	if ro.priority {
		reqOpts = append(reqOpts, imagery.WithPriority())
	}
	if ro.fill {
		reqOpts = append(reqOpts, imagery.WithFill())
	}
	req, err := imagery.NewImageRequest(src, ro.alt, usage, reqOpts...)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	store := cache.NewBlobStore(memory.NewCacheRepository(4), nil, 0, log)

	var mu sync.Mutex
	report := renderReport{Events: []string{}}
	svc := delivery.NewService(newPipeline(cfg, fetcher, store, cfg.Images.Quality, log), store, delivery.Options{
		RootMargin:        float64(cfg.Images.RootMargin),
		Widths:            cfg.Images.Widths,
		PlaceholderColor:  cfg.Images.PlaceholderColor,
		PlaceholderWidth:  cfg.Images.PlaceholderWidth,
		PlaceholderHeight: cfg.Images.PlaceholderHeight,
	}, func(e shared.DomainEvent) {
		mu.Lock()
		defer mu.Unlock()
		report.Events = append(report.Events, e.EventName())
	}, log)

	h := svc.Render(req, func() {
		mu.Lock()
		defer mu.Unlock()
		report.OnLoad++
	})
	defer h.Unmount()
	report.Mounted = h.Element()

	box := imagery.Rect{Y: ro.offset, Width: ro.viewportWidth, Height: float64(cfg.Images.PlaceholderHeight)}
	if ro.height > 0 {
		box.Height = float64(ro.height)
	}
	visible := h.Intersect(box, imagery.Rect{Width: ro.viewportWidth, Height: ro.viewportHeight})
	h.Wait()

	// the browser finishes loading whatever source it was given
	if h.Snapshot().State == imagery.StateNativeLoading {
		h.NativeLoad()
	}

	mu.Lock()
	report.Visible = visible
	report.Final = h.Element()
	report.Snapshot = h.Snapshot()
	out, err := json.MarshalIndent(report, "", "  ")
	mu.Unlock()
	if err != nil {
		return err
	}

	writeLine(cmd.OutOrStdout(), string(out))
	return nil
}
