// Command trustbrokerd is the trust broker daemon: it owns the persistent
// decision cache for one host service, accepts connector sessions on the
// remote listener, exposes the narrow store-exposure endpoint to
// that same service, and optionally serves a localhost diagnostic surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trustbrokerd/trustbroker/internal/adminhttp"
	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/metrics"
	"github.com/trustbrokerd/trustbroker/internal/remote/listener"
	"github.com/trustbrokerd/trustbroker/internal/runtime"
	"github.com/trustbrokerd/trustbroker/internal/storeapi"
	"github.com/trustbrokerd/trustbroker/internal/store"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
	brokerconfig "github.com/trustbrokerd/trustbroker/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "trustbrokerd",
		Short:         "Trust broker daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("for-service", "", "host service this broker instance answers decisions for")
	flags.String("remote-agent", string(brokerconfig.RemoteAgentUnixDomainSocket), "remote transport exposed to connector processes")
	flags.String("trusted-mir-socket", "", "filesystem path the remote listener binds to")
	flags.String("endpoint", "", "store-exposure endpoint socket path (defaults to a path derived from for-service)")
	flags.String("description-pattern", "%1$s wants to use this feature", "format string with a %1$s application-id placeholder shown to the user")
	flags.String("whitelist-ids-file", "", "optional file of application ids (one per line) bypassing the chain")
	flags.Bool("admin-http.enabled", false, "enable the localhost diagnostic HTTP surface")
	flags.String("admin-http.addr", "127.0.0.1:9091", "diagnostic surface listen address (host is always forced to localhost)")
	flags.String("admin-http.auth-secret", "", "if set, requires an HS256 bearer token signed with this secret on every admin-http route except /healthz")
	flags.Int("worker-pool-size", brokerconfig.DefaultWorkerPoolSize, "fixed worker pool size for the runtime")
	flags.Duration("shutdown-timeout", brokerconfig.DefaultShutdownTimeout, "graceful shutdown timeout")
	flags.String("store.backend", "sqlite", "store backend (sqlite, postgres)")
	flags.String("store.sqlite.path", "", "sqlite database file path (defaults under $XDG_DATA_HOME/trustbroker)")
	flags.String("store.postgres.host", "localhost", "postgres host")
	flags.Int("store.postgres.port", 5432, "postgres port")
	flags.String("store.postgres.database", "", "postgres database name")
	flags.String("store.postgres.user", "", "postgres user")
	flags.String("store.postgres.password", "", "postgres password")
	flags.String("store.postgres.sslmode", "disable", "postgres sslmode")
	flags.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Bool("telemetry.enabled", false, "enable OpenTelemetry tracing")
	flags.String("telemetry.endpoint", "localhost:4317", "OTLP gRPC endpoint")
	flags.Bool("telemetry.insecure", true, "use an insecure OTLP connection")
	flags.Float64("telemetry.sample-rate", 1.0, "trace sample rate, 0.0 to 1.0")
	flags.Bool("telemetry.profiling.enabled", false, "enable Pyroscope continuous profiling")
	flags.String("telemetry.profiling.endpoint", "http://localhost:4040", "Pyroscope server address")
	flags.Bool("metrics.enabled", false, "enable the Prometheus metrics registry")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigSchemaCmd())
	return configCmd
}

func newConfigSchemaCmd() *cobra.Command {
	var schemaOutput string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate a JSON Schema for the broker's configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			reflector := jsonschema.Reflector{
				AllowAdditionalProperties: false,
				DoNotReference:            true,
			}
			schema := reflector.Reflect(&brokerconfig.Config{})
			schema.Version = "https://json-schema.org/draft/2020-12/schema"
			schema.Title = "trustbrokerd Configuration"
			schema.Description = "Configuration schema for the trust broker daemon"

			schemaJSON, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("generating schema: %w", err)
			}

			if schemaOutput != "" {
				if err := os.WriteFile(schemaOutput, schemaJSON, 0o644); err != nil {
					return fmt.Errorf("writing schema file: %w", err)
				}
				cmd.Printf("JSON schema written to %s\n", schemaOutput)
				return nil
			}

			cmd.Println(string(schemaJSON))
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("trustbrokerd %s (commit %s)\n", version, commit)
			return nil
		},
	}
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := brokerconfig.Load(v)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  v.GetString("log-level"),
		Format: v.GetString("log-format"),
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        v.GetBool("telemetry.enabled"),
		ServiceName:    "trustbrokerd",
		ServiceVersion: version,
		Endpoint:       v.GetString("telemetry.endpoint"),
		Insecure:       v.GetBool("telemetry.insecure"),
		SampleRate:     v.GetFloat64("telemetry.sample-rate"),
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        v.GetBool("telemetry.profiling.enabled"),
		ServiceName:    "trustbrokerd",
		ServiceVersion: version,
		Endpoint:       v.GetString("telemetry.profiling.endpoint"),
		ProfileTypes:   []string{"cpu", "alloc_objects"},
	})
	if err != nil {
		return fmt.Errorf("initializing profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	if v.GetBool("metrics.enabled") {
		metrics.InitRegistry()
		logger.Info("metrics registry enabled")
	}

	logger.Info("configuration loaded", "for_service", cfg.ForService, "store_backend", cfg.Store.Backend)

	decisionStore, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	remoteListener := listener.New(cfg.TrustedMirSocket, nil)

	storeSocket := cfg.Endpoint
	if storeSocket == "" {
		storeSocket = fmt.Sprintf("/run/trustbroker/%s.storeapi.sock", cfg.ForService)
	}
	storeListener := storeapi.NewListener(storeSocket, decisionStore)

	servers := []runtime.Server{remoteListener, storeListener}

	var adminSrv *adminHTTPServer
	if cfg.AdminHTTP.Enabled {
		router := adminhttp.NewRouter(func() []adminhttp.SessionView {
			views := remoteListener.Registry().Views()
			out := make([]adminhttp.SessionView, len(views))
			for i, sv := range views {
				out[i] = adminhttp.SessionView{UID: sv.UID, PID: sv.PID, GID: sv.GID}
			}
			return out
		}, cfg.AdminHTTP.AuthSecret)
		adminSrv = newAdminHTTPServer(cfg.AdminHTTP.Addr, router)
		servers = append(servers, adminSrv)
		logger.Info("admin diagnostic surface enabled", "addr", cfg.AdminHTTP.Addr)
	} else {
		logger.Info("admin diagnostic surface disabled")
	}

	rt := runtime.New(runtime.Config{
		WorkerPoolSize:  cfg.WorkerPoolSize,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})

	logger.Info("trustbrokerd starting",
		"trusted_mir_socket", cfg.TrustedMirSocket,
		"store_socket", storeSocket)

	return rt.Run(ctx, servers...)
}

// adminHTTPServer adapts net/http.Server to runtime.Server.
type adminHTTPServer struct {
	srv *http.Server
}

func newAdminHTTPServer(addr string, handler http.Handler) *adminHTTPServer {
	return &adminHTTPServer{srv: &http.Server{Addr: localhostAddr(addr), Handler: handler}}
}

// localhostAddr forces the host part of addr to localhost regardless of
// what was configured, per the diagnostic surface's localhost-only policy.
func localhostAddr(addr string) string {
	port := addr
	if idx := lastColon(addr); idx >= 0 {
		port = addr[idx:]
	}
	return "127.0.0.1" + port
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

func (a *adminHTTPServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
