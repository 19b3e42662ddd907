// Package cli implements the clinicadm command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-clinic-console/config"
	"github.com/goliatone/go-clinic-console/internal/telemetry"
	"github.com/goliatone/go-clinic-console/metrics/prom"
	"github.com/goliatone/go-clinic-console/pkg/di"
)

// Version is injected during build.
var Version = "dev"

type app struct {
	configPath  string
	apiURL      string
	token       string
	logLevel    string
	metricsAddr string

	container *di.Container
	registry  *prometheus.Registry
	shutdown  []func(context.Context) error
}

// NewRootCmd builds the clinicadm command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "clinicadm",
		Short: "clinicadm browses and edits the clinic records",
		Long: `clinicadm pages through doctors, patients, appointments, specialities,
qualifications and symptoms served by the clinic services.

Configuration is read from an optional YAML file, then from environment
variables (CLINIC_API_URL, DOCTOR_URL, CLINIC_API_TOKEN, ...), then from flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML configuration file")
	flags.StringVar(&a.apiURL, "api-url", "", "Base URL of the clinic API (overrides CLINIC_API_URL)")
	flags.StringVar(&a.token, "token", "", "Bearer token sent with every request")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	root.AddCommand(
		newEntitiesCmd(),
		newListCmd(a),
		newBrowseCmd(a),
		newShowCmd(a),
		newSubmitCmd(a, false),
		newSubmitCmd(a, true),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// with runs fn against a container built from the configuration and flags,
// releasing everything afterwards.
func (a *app) with(fn func(cmd *cobra.Command, args []string, c *di.Container) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(cmd); err != nil {
			return errors.Join(err, a.teardown(cmd.Context()))
		}
		defer func() { err = errors.Join(err, a.teardown(cmd.Context())) }()
		return fn(cmd, args, a.container)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.token != "" {
		cfg.API.Token = a.token
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cfg.API.BaseURL == "" && len(cfg.Services.Map()) == 0 {
		return errors.New("no API URL configured: set --api-url or CLINIC_API_URL")
	}

	ctx := cmd.Context()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.shutdown = append(a.shutdown, shutdownTracing)

	a.registry = prometheus.NewRegistry()
	metrics := prom.New(a.registry, "clinicadm", "cache", nil)

	a.container, err = di.NewContainer(cfg, di.WithMetrics(metrics))
	if err != nil {
		return err
	}

	if a.metricsAddr != "" {
		stop, err := serveMetrics(a.metricsAddr, a.registry)
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, stop)
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.container != nil {
		errs = append(errs, a.container.Close())
		a.container = nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, a.shutdown[i](ctx))
	}
	a.shutdown = nil
	return errors.Join(errs...)
}

func serveMetrics(addr string, reg *prometheus.Registry) (stop func(context.Context) error, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{
		Handler:           metricsHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	return srv.Shutdown, nil
}
