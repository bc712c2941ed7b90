package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tejaswini050302/TDS-Project-1/internal/logging"
	"github.com/Tejaswini050302/TDS-Project-1/internal/server"
	"github.com/Tejaswini050302/TDS-Project-1/internal/tracing"
	"github.com/Tejaswini050302/TDS-Project-1/internal/version"
)

// NewServeCmd constructs the `tdsta serve` command, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the question-answering HTTP API",
		Long: `Start the HTTP API.

Routes:
  POST /api/           {"question": "...", "image": null} -> {"answer", "links"}
  POST /ask            same as POST /api/
  GET  /api/?question= same as POST /api/
  GET  /api/health     liveness
  GET  /api/ready      qdrant, redis, store and LLM probes
  GET  /metrics        Prometheus

Set TDSTA_API_KEY to require a Bearer token on the question routes.

Examples:
  tdsta serve
  tdsta serve --host 0.0.0.0 --port 8000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)

			// Flag wins, then TDSTA_HOST / TDSTA_PORT (which the YAML file may set).
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("TDSTA_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("TDSTA_PORT", port)
			}
			log.Info("serve starting", slog.String("version", version.String()))

			flush, ok := tracing.Setup(tracing.ConfigFromEnv(version.Version))
			defer flush()
			if ok {
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
			}

			stack, err := buildAnswerStack(ctx, log, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer stack.Close()

			srv, err := server.New(stack.service, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: buildPingers(stack),
				APIKey:  os.Getenv("TDSTA_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")

	return cmd
}

// buildPingers returns the readiness probes for every dependency the stack
// actually opened.
func buildPingers(stack *answerStack) []server.Pinger {
	pingers := []server.Pinger{server.NewDependencyPinger("qdrant", stack.index)}
	if stack.cache != nil {
		pingers = append(pingers, server.NewDependencyPinger("redis", stack.cache))
	}
	if stack.store != nil {
		pingers = append(pingers, server.NewDependencyPinger("store", stack.store))
	}
	if p := server.NewLLMPinger(stack.providerCfg, &http.Client{Timeout: 5 * time.Second}); p != nil {
		pingers = append(pingers, p)
	}
	return pingers
}
