package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridopt/stochuc/infra/logger"
)

var deterministicCmd = &cobra.Command{
	Use:   "deterministic",
	Short: "Solve the one-shot economic dispatch over the retail price sweep",
	RunE:  runDeterministic,
}

func init() {
	rootCmd.AddCommand(deterministicCmd)
}

func runDeterministic(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("deterministic-command").Errorf("service close: %v", err)
		}
	}()
	return svc.RunDeterministic(ctx)
}
