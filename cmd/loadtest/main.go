package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultServerRoot = "http://localhost:8081"
	defaultTargetURL  = defaultServerRoot + "/api/v1/rates"
)

func rootCmd() *cobra.Command {
	config := LoadTestConfig{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive concurrent requests at the currency rate cache",
		Long: `loadtest sends requests from a number of simulated users at one or more
endpoints of a running currency rate cache and prints a latency summary.

Examples:
  loadtest --users 50 --requests 200
  loadtest --url http://localhost:8081/api/v1/convert?from=USD\&to=EUR\&amount=10
  loadtest --path /api/v1/rates/USD --path /api/v1/rate?from=EUR\&to=GBP --duration 30s`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// --path is relative to the server root unless --url says otherwise
			if len(config.Paths) > 0 && !cmd.Flags().Changed("url") {
				config.URL = defaultServerRoot
			}
			if err := config.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printConfig(out, config)
			summary := runLoadTest(cmd.Context(), config)
			printSummary(out, summary)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&config.URL, "url", defaultTargetURL, "Target URL, or base URL when --path is given (defaults to "+defaultServerRoot+")")
	flags.StringSliceVar(&config.Paths, "path", nil, "Paths appended to --url; users rotate through them")
	flags.IntVarP(&config.ConcurrentUsers, "users", "u", 10, "Number of concurrent users")
	flags.IntVarP(&config.RequestsPerUser, "requests", "n", 100, "Number of requests per user")
	flags.DurationVar(&config.Timeout, "timeout", 30*time.Second, "Request timeout")
	flags.DurationVar(&config.TestDuration, "duration", 0, "Test duration (0 = run until all requests complete)")
	flags.DurationVar(&config.RampUpDuration, "rampup", 5*time.Second, "Ramp-up duration")
	flags.DurationVar(&config.ThinkTime, "think", 100*time.Millisecond, "Think time between requests")

	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
