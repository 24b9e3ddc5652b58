// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluffyriot/bookshare/internal/api/handlers"
	"github.com/fluffyriot/bookshare/internal/app"
	"github.com/fluffyriot/bookshare/internal/cli"
	"github.com/fluffyriot/bookshare/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const usage = `usage: bookshare <command> [flags]

commands:
  serve                          run the HTTP gateway
  timeline --email E [--pages N] print the timeline
  chat --email E                 join the chat room
`

// initOTEL installs a tracer provider when an OTLP endpoint is configured.
func initOTEL(ctx context.Context, cfg *config.AppConfig) func(context.Context) error {
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }
	}
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Fatalf("otel exporter: %v", err)
	}
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}
	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("deployment.environment", env),
	))
	tp := trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.TraceSampleArg))),
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := initOTEL(ctx, cfg)
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(c)
	}()

	container := app.NewContainer(cfg)
	defer container.Shutdown()

	switch os.Args[1] {
	case "serve":
		err = serve(ctx, cfg, container)
	case "timeline", "chat":
		err = runClient(ctx, container, os.Args[1], os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalln(err)
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, container *app.Container) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	router := handlers.NewHandler(container).Router(cfg.SessionSecret)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	container.Worker.Start(cfg.RefreshInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server: Listening on %s, backend %s", cfg.ListenAddr, cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Server: Shutting down")
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(c)
}

func runClient(ctx context.Context, container *app.Container, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	email := fs.String("email", os.Getenv("BOOKSHARE_EMAIL"), "account email")
	pages := fs.Int("pages", 1, "timeline pages to load")
	fs.Parse(args)

	password := os.Getenv("BOOKSHARE_PASSWORD")
	if password == "" {
		p, err := cli.ReadPassword("Password: ")
		if err != nil {
			return err
		}
		password = p
	}
	if err := cli.HandleSignIn(ctx, container, *email, password); err != nil {
		return err
	}

	if cmd == "chat" {
		return cli.HandleChat(ctx, container, os.Stdin, os.Stdout)
	}
	return cli.HandleTimeline(ctx, container, *pages, os.Stdout)
}
