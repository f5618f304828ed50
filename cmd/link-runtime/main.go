package main

import (
	"context"
	"flag"
	"os"

	"link-runtime/internal/conf"
	"link-runtime/internal/data"
	"link-runtime/internal/infra/emitter"
	"link-runtime/internal/infra/eventbus"
	"link-runtime/internal/infra/logging"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "link-runtime"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
}

func newApp(
	logger log.Logger,
	hs *http.Server,
	eventBus *eventbus.EventBus,
	router *eventbus.Router,
	clicks *emitter.Emitter,
	invalidator *data.CacheInvalidator,
) *kratos.App {
	helper := log.NewHelper(logger)
	eventbus.RegisterHandlers(router, logger)

	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
		kratos.BeforeStart(func(ctx context.Context) error {
			go func() {
				if err := router.Run(ctx); err != nil {
					helper.Errorf("event router error: %v", err)
				}
			}()
			clicks.Start()
			if invalidator.Enabled() {
				go func() {
					if err := invalidator.Run(ctx); err != nil {
						helper.Errorf("cache invalidation stopped: %v", err)
					}
				}()
			}
			return nil
		}),
		kratos.BeforeStop(func(ctx context.Context) error {
			// Drain clicks before the bus they may be published on goes away.
			if err := clicks.Stop(ctx); err != nil {
				helper.Errorf("click emitter did not drain: %v", err)
			}
			if err := invalidator.Close(); err != nil {
				helper.Errorf("failed to close cache invalidation: %v", err)
			}
			if err := router.Close(); err != nil {
				helper.Errorf("failed to close router: %v", err)
			}
			if err := eventBus.Close(); err != nil {
				helper.Errorf("failed to close event bus: %v", err)
			}
			return nil
		}),
	)
}

func loadConfig() (*conf.Bootstrap, error) {
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
			env.NewSource("LINK_RUNTIME_"),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	bc.ApplyDefaults()
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return &bc, nil
}

func main() {
	flag.Parse()

	bc, err := loadConfig()
	if err != nil {
		panic(err)
	}

	zl, err := logging.NewZap(bc.Server.Debug)
	if err != nil {
		panic(err)
	}
	zapLogger := logging.NewLogger(zl)
	defer zapLogger.Sync()

	logger := log.With(zapLogger,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)
	log.SetLogger(logger)

	app, cleanup, err := wireApp(
		bc.Server,
		bc.Redirect,
		bc.Cache,
		bc.Store,
		bc.Secrets,
		bc.Redis,
		bc.GeoIP,
		bc.Emitter,
		logger,
	)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
