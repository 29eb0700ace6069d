package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/api"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		rateLimit   float64
		burst       int
		cacheSize   int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve encode/decode and gram lookup over HTTP",
		Flags: append(vocabFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "requests per second per client (0 = unlimited)",
				Value:       1,
				Destination: &rateLimit,
			},
			&cli.IntFlag{
				Name:        "burst",
				Usage:       "requests a client may make at once before throttling",
				Value:       5,
				Destination: &burst,
			},
			&cli.IntFlag{
				Name:        "cache-size",
				Usage:       "encode results to cache (negative disables)",
				Value:       api.DefaultCacheSize,
				Destination: &cacheSize,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, cfg, &addr, &rateLimit, &cacheSize)

			v, info, err := openVocab()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load vocabulary: %v", err), 1)
			}
			server, err := api.NewServer(v, info, api.Config{
				CacheSize: cacheSize,
				RateLimit: rateLimit,
				Burst:     burst,
				Logger:    log.With("component", "api"),
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "vocab", vocabPath, "grams", v.Len())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
