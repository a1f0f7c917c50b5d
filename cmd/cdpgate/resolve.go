package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/resolver"
)

var errResolutionFailed = errors.New("no candidate produced a debugger url")

const pushJob = "cdpgate_resolve"

type resolveOptions struct {
	file    string
	retries int
	delay   time.Duration
	timeout time.Duration
	policy  string
	verify  bool
	gateway string
}

func newResolveCommand(g *globalOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve [name=]url...",
		Short: "Print the first working CDP debugger URL among candidate addresses.",
		Long: `Try each candidate base address in order, retrying each up to its budget
before failing over to the next. The debugger URL of the first candidate that
answers is rewritten against that candidate's address and printed on stdout.

Candidates come from the arguments, --file, or CDP_CANDIDATES, in that order
of precedence.`,
		Example: `  cdpgate resolve proxied=https://sandbox.example.com direct=http://10.0.0.7:9222
  cdpgate resolve --file candidates.yaml --verify
  cdpgate resolve --pushgateway http://pushgateway:9091 http://10.0.0.7:9222`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "YAML candidates file")
	f.IntVarP(&opts.retries, "retries", "r", 3, "attempts per candidate (env RESOLVER_RETRIES)")
	f.DurationVarP(&opts.delay, "delay", "d", 2*time.Second, "wait between attempts (env RESOLVER_DELAY)")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout of a single attempt (env RESOLVER_TIMEOUT)")
	f.StringVar(&opts.policy, "policy", "fixed", "retry delay policy: fixed or linear (env RESOLVER_POLICY)")
	f.BoolVar(&opts.verify, "verify", false, "open a CDP session on the rewritten URL before accepting it (env RESOLVER_VERIFY)")
	f.StringVar(&opts.gateway, "pushgateway", "", "Prometheus Pushgateway URL that receives the resolver metrics on exit")

	return cmd
}

func (o *resolveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("retries") {
		cfg.Resolver.Retries = o.retries
	}
	if f.Changed("delay") {
		cfg.Resolver.Delay = o.delay
	}
	if f.Changed("timeout") {
		cfg.Resolver.Timeout = o.timeout
	}
	if f.Changed("policy") {
		cfg.Resolver.Policy = o.policy
	}
	if f.Changed("verify") {
		cfg.Resolver.Verify = o.verify
	}
}

func runResolve(cmd *cobra.Command, args []string, g *globalOptions, opts *resolveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := g.logger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	candidates, err := loadCandidates(args, opts.file, cfg.Resolver)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics()
	resolverOpts := []resolver.Option{
		resolver.WithTimeout(cfg.Resolver.Timeout),
		resolver.WithLogger(logger.Component("resolver")),
		resolver.WithMetrics(metrics),
	}
	if cfg.Resolver.Verify {
		resolverOpts = append(resolverOpts, resolver.WithVerifier(resolver.CDPVerifier{}))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := resolver.New(resolverOpts...).Resolve(ctx, candidates)
	pushMetrics(cmd, logger, metrics, opts.gateway)
	if err != nil {
		printTrail(cmd.ErrOrStderr(), err)
		return errResolutionFailed
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.WebSocketURL)
	return nil
}

func loadCandidates(args []string, file string, cfg config.ResolverConfig) ([]resolver.Candidate, error) {
	budget := resolver.Budget{
		Retries: cfg.Retries,
		Delay:   cfg.Delay,
		Policy:  resolver.Policy(strings.ToLower(cfg.Policy)),
	}

	switch {
	case len(args) > 0:
		return resolver.ParseCandidates(args, budget)
	case file != "":
		return resolver.LoadCandidatesFile(file, budget)
	case len(cfg.Candidates) > 0:
		return resolver.ParseCandidates(cfg.Candidates, budget)
	default:
		return nil, fmt.Errorf("%w: pass candidates as arguments, --file or CDP_CANDIDATES", resolver.ErrNoCandidates)
	}
}

// pushMetrics hands the run's resolver counters to a Pushgateway. A push
// failure is logged and never changes the command's outcome.
func pushMetrics(cmd *cobra.Command, logger *logging.Logger, metrics *monitoring.Metrics, gateway string) {
	if gateway == "" {
		return
	}
	err := push.New(gateway, pushJob).
		Gatherer(metrics.Registry()).
		PushContext(cmd.Context())
	if err != nil {
		logger.Warn("Failed to push resolver metrics",
			zap.String("pushgateway", gateway),
			zap.Error(err))
		return
	}
	logger.Debug("Pushed resolver metrics", zap.String("pushgateway", gateway))
}

// printTrail writes the per-candidate failure history
func printTrail(w io.Writer, err error) {
	var exhausted *resolver.ExhaustedError
	if !errors.As(err, &exhausted) {
		fmt.Fprintf(w, "resolve failed: %v\n", err)
		return
	}

	if exhausted.Cause != nil {
		fmt.Fprintf(w, "resolution stopped: %v\n", exhausted.Cause)
	}
	for _, f := range exhausted.Failures {
		fmt.Fprintf(w, "%s (%s): %d attempt(s)\n", f.Candidate.Name, f.Candidate.BaseURL, f.Attempts)
		for i, e := range f.Errors {
			fmt.Fprintf(w, "  attempt %d: %v\n", i+1, e)
		}
	}
}
