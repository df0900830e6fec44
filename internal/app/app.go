package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockguard/internal/checkout"
	"stockguard/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Application holds all the components and manages the application lifecycle
type Application struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *Container
	consumer  checkout.ConsumerService
	server    *http.Server
}

// NewApplication creates and fully initializes a new Application instance
func NewApplication(ctx context.Context) (*Application, error) {
	appCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	app := &Application{
		ctx:    appCtx,
		cancel: cancel,
	}

	container, err := NewContainer(app.ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	app.container = container

	if err := app.wireServices(); err != nil {
		app.Shutdown()
		return nil, err
	}

	app.container.Logger().Info("Application initialized successfully")
	return app, nil
}

func (app *Application) wireServices() error {
	factory := NewServiceFactory(app.container)

	checker, err := factory.CreateChecker()
	if err != nil {
		return err
	}
	svc, err := factory.CreateCheckoutService(checker)
	if err != nil {
		return err
	}

	app.consumer = factory.CreateConsumerService(svc)
	app.server = &http.Server{
		Addr:         app.container.Config().HTTPAddr,
		Handler:      factory.CreateHTTPHandler(svc).Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return nil
}

// Run drives the Kafka consumer loop and the HTTP server until the
// application context is cancelled or either of them fails.
func (app *Application) Run() error {
	g, ctx := errgroup.WithContext(app.ctx)

	g.Go(func() error {
		return app.consumer.Start(ctx)
	})

	g.Go(func() error {
		app.container.Logger().Info("HTTP server listening", zap.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return app.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down all application components
func (app *Application) Shutdown() {
	if app.container != nil {
		app.container.Logger().Info("Starting application shutdown...")
	}

	if app.cancel != nil {
		app.cancel()
	}

	if app.container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		app.container.Shutdown(ctx)
	}
}
