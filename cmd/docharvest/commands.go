package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/docharvest/docpipe"
	"github.com/hazyhaar/docharvest/storage"
)

const version = "0.3.0"

func (a *app) extractCmd() *cobra.Command {
	var (
		outDir      string
		useDB       bool
		tableFormat string
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract one document into flat files and, with --db, the SQL store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.cfg.Extract.OutputDir = outDir
			}
			if tableFormat != "" {
				a.cfg.Extract.TableFormat = tableFormat
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runExtract(cmd.Context(), args[0], useDB)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (overrides extract.output_dir)")
	cmd.Flags().BoolVar(&useDB, "db", false, "also store results in the configured database")
	cmd.Flags().StringVar(&tableFormat, "table-format", "", "table file format: csv or xlsx")
	return cmd
}

func (a *app) runExtract(ctx context.Context, path string, useDB bool) error {
	pipe := docpipe.New(a.cfg.Pipeline(a.logger))

	fileSink, err := storage.NewFileSink(a.cfg.Extract.OutputDir, a.logger)
	if err != nil {
		return err
	}
	sinks := []storage.Sink{fileSink}
	if useDB {
		sqlSink, err := storage.OpenSQL(ctx, a.cfg.Database, a.logger)
		if err != nil {
			return err
		}
		defer sqlSink.Close()
		sinks = append(sinks, sqlSink)
	}

	start := time.Now()
	res, err := pipe.Extract(ctx, path)
	if err != nil {
		return err
	}
	for _, s := range sinks {
		if err := storage.Store(ctx, s, res); err != nil {
			return err
		}
	}
	a.logger.Info("extract.done",
		"file", path,
		"kind", res.Kind,
		"text", len(res.Text),
		"links", len(res.Links),
		"images", len(res.Images),
		"tables", len(res.Tables),
		"db", useDB,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Fprintf(a.stdout, "%s: %d text, %d links, %d images, %d tables -> %s\n",
		path, len(res.Text), len(res.Links), len(res.Images), len(res.Tables), a.cfg.Extract.OutputDir)
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			pipe := docpipe.New(a.cfg.Pipeline(a.logger))
			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           pipe.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", "addr", srv.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the extraction tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			srv := mcp.NewServer(&mcp.Implementation{Name: "docharvest", Version: version}, nil)
			docpipe.New(a.cfg.Pipeline(a.logger)).RegisterMCP(srv)
			a.logger.Info("mcp serving on stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}

func (a *app) formatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported document formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds := docpipe.SupportedKinds()
			if asJSON {
				return json.NewEncoder(a.stdout).Encode(map[string]any{"formats": kinds})
			}
			for _, k := range kinds {
				fmt.Fprintln(a.stdout, k.Ext())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
