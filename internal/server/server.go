package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/composer/config"
	"github.com/mohammad-safakhou/composer/internal/chatlog"
	"github.com/mohammad-safakhou/composer/internal/llm"
	"github.com/mohammad-safakhou/composer/internal/memory"
	"github.com/mohammad-safakhou/composer/internal/pagesearch"
	"github.com/mohammad-safakhou/composer/internal/scraper"
	"github.com/mohammad-safakhou/composer/internal/store"
)

// Run wires the composer backend and serves it on addr (falling back to the
// configured listen address).
func Run(cfg *config.Config, addr string) error {
	e := newEcho()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := Migrate("file://migrations", cfg.Databases.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("migrations: %v", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Databases.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Databases.Redis.Addr(),
		Password: cfg.Databases.Redis.Password,
		DB:       cfg.Databases.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Databases.Redis.Addr(), err)
	}

	pipeline := llm.NewPipeline(&llm.Router{
		OpenAI:    llm.NewOpenAIClient(cfg.Providers.OpenAI),
		Anthropic: llm.NewAnthropicClient(cfg.Providers.Anthropic),
	}, nil)

	pages, err := pagesearch.New()
	if err != nil {
		return err
	}
	if n, err := pages.Rebuild(ctx, st, 1000); err != nil {
		log.Printf("page index rebuild: %v", err)
	} else if n > 0 {
		log.Printf("page index rebuilt with %d pages", n)
	}

	mem := memory.New(cfg.Memory)

	h := &Handler{
		Store:        st,
		Chat:         chatlog.New(rdb),
		Pipeline:     pipeline,
		Scraper:      scraper.New(cfg.Scraper),
		Pages:        pages,
		Memory:       mem,
		RedisPing:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		DefaultModel: cfg.General.DefaultModel,
	}
	h.Register(e)

	if cfg.Sync.Enabled {
		sync := &Syncer{
			Store:    st,
			Memory:   mem,
			Rdb:      rdb,
			CronSpec: cfg.Sync.CronSpec,
			Batch:    cfg.Sync.Batch,
			Stop:     make(chan struct{}),
		}
		sync.Start()
	}

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8000"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with recovery, CORS, metrics and the
// unified JSON error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(metricsMiddleware)

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	return e
}
