package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gridopt/stochuc/infra/logger"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw the Monte Carlo scenario set and write it to stdout as CSV",
	RunE:  runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("sample-command").Errorf("service close: %v", err)
		}
	}()
	return svc.WriteSamples(os.Stdout)
}
