// ABOUTME: CLI command running the line protocol server, optionally with MCP over HTTP.
// ABOUTME: Listeners run in an errgroup and stop together on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/ultratrainer/internal/mcp"
	"github.com/harperreed/ultratrainer/internal/protocol"
)

var (
	serveListen string
	serveHTTP   string
	serveStdio  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tools over line-delimited JSON",
	Long: `Serve the tool catalog over a newline-delimited JSON protocol.

Each line is one request; each response is one line:

  {"id":1,"type":"discover"}
  {"id":2,"type":"invoke","name":"list_goals","arguments":{"status":"active"}}

Every TCP connection is its own session and handles one request at a time.

OPTIONS:

  --listen   TCP address (default from ULTRATRAINER_LISTEN, 127.0.0.1:7433)
  --http     also serve MCP over streamable HTTP at this address (/mcp, /healthz)
  --stdio    serve a single session on stdin/stdout instead of TCP

EXAMPLES:

  ultratrainer serve
  ultratrainer serve --listen :9000 --http :8080
  echo '{"type":"discover"}' | ultratrainer serve --stdio`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registry, err := newRegistry(ctx)
		if err != nil {
			return err
		}
		server := protocol.NewServer(registry, protocol.WithLogger(logger))

		if serveStdio {
			return server.ServeConn(ctx, stdio{Reader: cmd.InOrStdin(), Writer: cmd.OutOrStdout()})
		}

		listen := cfg.Listen
		if serveListen != "" {
			listen = serveListen
		}
		httpAddr := cfg.HTTPAddr
		if serveHTTP != "" {
			httpAddr = serveHTTP
		}

		ln, err := net.Listen("tcp", listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", listen, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Serve(gctx, ln)
		})

		if httpAddr != "" {
			mcpServer := mcp.NewServer(registry,
				mcp.WithLogger(logger),
				mcp.WithVersion(version),
				mcp.WithHealthCheck(db.Ping),
			)
			httpServer := &http.Server{
				Addr:              httpAddr,
				Handler:           mcpServer.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			g.Go(func() error {
				logger.Info().Str("addr", httpAddr).Msg("mcp http listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("mcp http: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})
		}

		err = g.Wait()
		logger.Info().Msg("server stopped")
		return err
	},
}

// stdio joins stdin and stdout into one stream for ServeConn.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "TCP listen address")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "also serve MCP over HTTP at this address")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "serve one session on stdin/stdout")
	rootCmd.AddCommand(serveCmd)
}
