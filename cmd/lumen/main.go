package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/lumen/internal/app"
)

var (
	configPath string
	apiBind    string
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Terminal client for a local image search server",
	Long: `lumen browses, searches and ingests images on a local image search server.

Run without a subcommand to open the interactive browser.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cmd.Context(), app.Options{ConfigPath: configPath, APIBind: apiBind})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/lumen/config.toml)")
	rootCmd.PersistentFlags().StringVar(&apiBind, "api", "", "server address, overrides api_bind")

	rootCmd.AddCommand(healthCmd, tasksCmd, searchCmd, infoCmd, processCmd, scanCmd, uploadCmd, preloadCmd)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
		return 1
	}
	return 0
}
