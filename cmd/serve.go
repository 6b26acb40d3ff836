package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/logging"
	"videoforge/internal/planner"
	"videoforge/internal/providers/imagegen"
	"videoforge/internal/providers/render"
	"videoforge/internal/providers/textgen"
	"videoforge/internal/providers/tts"
	"videoforge/internal/providers/whisper"
	"videoforge/internal/regen"
	"videoforge/internal/stages"
	"videoforge/internal/status"
	"videoforge/internal/store"
	"videoforge/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline worker and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Captions.Enabled {
		cfg.Defaults.Captions = false
	}

	st := store.New()
	bus := status.NewBus(500)
	reporter := status.Multi{status.NewLogReporter(log), bus}
	pl := planner.New(log)

	audio := stages.NewAudioAdapter(tts.New(cfg.Audio.Command, log), cfg.Audio.OutputFormat, log)
	captions := stages.NewCaptionAdapter(
		whisper.New(cfg.Captions.Command, cfg.Captions.WhisperModel, cfg.Captions.MaxCharsPerLine, log), log)
	prompts := stages.NewPromptAdapter(
		textgen.NewGroq(cfg.TextGen.PrimaryModel, cfg.TextGen.Temperature),
		textgen.NewOpenAI(cfg.TextGen.FallbackModel),
		cfg.TextGen.Attempts, cfg.TextGen.Backoff(), log)
	images := stages.NewImageAdapter(
		imagegen.New(cfg.Images.Width, cfg.Images.Height, cfg.Images.Model, log), log)
	video := stages.NewVideoAdapter(render.New(render.Options{
		FPS:          cfg.Render.FPS,
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		Preset:       cfg.Render.Preset,
		CRF:          cfg.Render.CRF,
		KenBurnsZoom: cfg.Render.KenBurnsZoom,
	}, log), log)

	wrk := worker.New(worker.Deps{
		Store:    st,
		Planner:  pl,
		Audio:    audio,
		Captions: captions,
		Prompts:  prompts,
		Images:   images,
		Video:    video,
		Reporter: reporter,
		Log:      log,
	})
	rc := regen.New(regen.Deps{
		Store:    st,
		Planner:  pl,
		Audio:    audio,
		Captions: captions,
		Prompts:  prompts,
		Images:   images,
		Video:    video,
		Reporter: reporter,
		Log:      log,
	})

	srv := api.New(st, rc, bus, cfg.Paths.Projects, cfg.Defaults, log)
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := wrk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Infow("http api listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	rc.Wait()
	log.Infow("shutdown complete")
	return err
}
