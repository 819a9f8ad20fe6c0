package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/breakwater/internal/mockapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fault-injection mock API",
	Long: `Start the mock API used as a load-test target.

GET  /internal-api/products        plays a shared outcome sequence; on
                                   exhaustion it resets and succeeds.
POST /internal-api/payment/charge  plays an independent sequence per
                                   X-Correlation-ID; on exhaustion it
                                   resets and restarts the sequence.

The sequence is chosen per request with the ?scenario= query parameter,
e.g. ?scenario=500-500-ok or ?scenario=slow:2000-ok.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		verbose, _ := cmd.Flags().GetBool("verbose")

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return mockapi.NewServer(logger).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address for the mock API")
}
