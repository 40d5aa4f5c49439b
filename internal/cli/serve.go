package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/serve"
)

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered reels over HTTP for the publisher to fetch",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to serve.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := loadProject()
	if err != nil {
		return err
	}

	logger, closer, err := openLog(p.Paths, "serve")
	if err != nil {
		return err
	}
	defer closer.Close()

	addr := serveAddr
	if addr == "" {
		addr = p.Config.Serve.Addr
	}

	router := serve.NewRouter(p.Paths.OutputDir, logger.Writer())
	logger.Printf("serving %s on %s", p.Paths.OutputDir, addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "serving %s at http://%s%s/ (Ctrl+C to stop)\n", p.Paths.OutputDir, addr, serve.ReelPrefix)

	return serve.Run(ctx, addr, router)
}
