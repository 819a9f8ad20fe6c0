package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/breakwater/internal/config"
	"github.com/wesleyorama2/breakwater/internal/httpclient"
	"github.com/wesleyorama2/breakwater/internal/loadtest"
	"github.com/wesleyorama2/breakwater/internal/output"
	"github.com/wesleyorama2/breakwater/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test from a configuration file",
	Long: `Execute a staggered load test against a fault-injection endpoint and
print a capacity report.

  breakwater run --config payment-burst.yaml
  breakwater run --config payment-burst.yaml --format json
  breakwater run --config payment-burst.yaml --deferred

With --deferred, each call is submitted through a deferred-result
orchestrator so the report captures the submitting worker and the
resolving context as separate identities.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		format, _ := cmd.Flags().GetString("format")
		noColor, _ := cmd.Flags().GetBool("no-color")
		deferred, _ := cmd.Flags().GetBool("deferred")
		verbose, _ := cmd.Flags().GetBool("verbose")

		outputFormat, err := output.ParseFormat(format)
		if err != nil {
			return err
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer logger.Sync()

		rep, err := executeRun(cmd.Context(), cfg, deferred, logger)
		if err != nil {
			return err
		}

		return output.NewRenderer(os.Stdout, outputFormat, noColor).Render(rep)
	},
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Path to the run configuration file (required)")
	runCmd.Flags().StringP("format", "f", "text", "Report format: text or json")
	runCmd.Flags().Bool("no-color", false, "Disable colored output")
	runCmd.Flags().Bool("deferred", false, "Submit calls through the deferred-result orchestrator")
	runCmd.MarkFlagRequired("config")
}

func executeRun(ctx context.Context, cfg *config.RunConfig, deferred bool, logger *zap.Logger) (*report.ExecutionReport, error) {
	op, err := buildOperation(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("starting load test",
		zap.String("name", cfg.Name),
		zap.String("surface", cfg.Target.Surface),
		zap.String("scenario", cfg.Target.Scenario),
		zap.Int("requests", cfg.Run.Requests),
		zap.Bool("deferred", deferred))

	start := time.Now()
	var records []loadtest.ExecutionRecord
	if deferred {
		orch := loadtest.NewDeferredOrchestrator(logger)
		orch.Stagger = cfg.Run.Stagger.Std()
		records = orch.Run(ctx, deferredAdapter(op), cfg.Run.Requests, cfg.Run.MaxWait.Std())
	} else {
		orch := loadtest.NewOrchestrator(logger)
		orch.Stagger = cfg.Run.Stagger.Std()
		records = orch.Run(ctx, op, cfg.Run.Requests, cfg.Run.MaxWait.Std())
	}

	gen := report.NewGenerator(logger)
	return gen.Generate(cfg.Name, cfg.Run.Requests, time.Since(start), records, cfg.Capacity.CapacityConfig()), nil
}

func buildOperation(cfg *config.RunConfig) (loadtest.Operation, error) {
	client := httpclient.NewClient(cfg.Target.BaseURL,
		httpclient.WithTimeout(cfg.Target.Timeout.Std()))

	switch cfg.Target.Surface {
	case config.SurfaceProducts:
		return client.ProductsOperation(cfg.Target.Scenario), nil
	case config.SurfacePayment:
		payload, err := json.Marshal(map[string]any{
			"customerId":    "CUST-0001",
			"amount":        25.00,
			"currency":      "USD",
			"paymentMethod": "CARD",
		})
		if err != nil {
			return nil, err
		}
		return client.ChargeOperation(cfg.Target.Scenario, payload), nil
	default:
		return nil, fmt.Errorf("unknown surface: %s", cfg.Target.Surface)
	}
}

// deferredAdapter lifts a blocking operation into the deferred contract
// by resolving each promise from a dedicated goroutine.
func deferredAdapter(op loadtest.Operation) loadtest.DeferredOperation {
	var seq atomic.Int64
	return func(ctx context.Context) *loadtest.Promise {
		identity := fmt.Sprintf("resolver-%d", seq.Add(1))
		p := loadtest.NewPromise()
		go func() {
			if err := op(ctx); err != nil {
				p.Reject(identity, err)
				return
			}
			p.Resolve(identity)
		}()
		return p
	}
}
