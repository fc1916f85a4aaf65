package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-enrollment/components/enrollform"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the enrollment page and its JSON API",
	Long: `Starts an HTTP server hosting one enrollment session:

  GET  /                 the enrollment page
  GET  /api/form         fields, values, field states and banner
  POST /api/fields/{id}  input, change, blur and focus events
  POST /api/draft        save the draft
  POST /api/submit       validate and submit
  GET  /api/openapi.json API description`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	enr, cleanup, err := openEnrollment(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	component := enrollform.New(
		enrollform.WithSession(enr.Session),
		enrollform.WithViews(enr.Recorder),
		enrollform.WithRenderer(enr.Renderer),
		enrollform.WithAPI(enr.API),
		enrollform.WithLogger(logger),
	)
	mux := http.NewServeMux()
	pattern, err := component.RegisterRoutes(mux, cfg.Server.BasePath)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", server.Addr), zap.String("mount", pattern))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		// save what the visitor typed before the process goes away
		if err := enr.Session.Unload(shutdownCtx); err != nil {
			logger.Warn("save draft on shutdown", zap.Error(err))
		}
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server stopped", zap.Error(err))
	return err
}
