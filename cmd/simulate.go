package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dserban/dern/config"
	"github.com/dserban/dern/infra/logger"
	"github.com/dserban/dern/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish synthetic incident reports over MQTT",
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gen, err := simulator.New(cfg.Simulator, cfg.MQTT, logger.New("simulator"))
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	return gen.Run(ctx)
}
