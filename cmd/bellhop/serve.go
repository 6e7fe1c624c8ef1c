package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilkoid/bellhop/pkg/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := loadComponents(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		defer utils.Close()

		if serveAddr != "" {
			c.Config.Server.Addr = serveAddr
		}
		go c.EvictIdleSessions(ctx, time.Minute, c.Config.Agent.SessionTTL)

		fmt.Fprintf(cmd.OutOrStdout(), "Bellhop API for %s listening on %s\n", c.HotelName, c.Config.Server.Addr)
		return c.NewServer().Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
