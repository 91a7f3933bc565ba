package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"event-worker/internal/backend"
	"event-worker/internal/config"
	"event-worker/internal/event"
	"event-worker/internal/handler"
	"event-worker/internal/logger"
	"event-worker/internal/producer"
	"event-worker/internal/queue"
	"event-worker/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	listen := flag.String("listen", "", "address of the enqueue API (overrides the configuration file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "event-worker: %v\n", err)
		os.Exit(2)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "event-worker: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("event-worker stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	brokerOpts, err := cfg.BrokerOptions()
	if err != nil {
		return err
	}
	backendOpts, err := cfg.BackendOptions()
	if err != nil {
		return err
	}

	// 1. Broker and result backend
	log.Infof("Initializing Redis broker (Addr: %s, DB: %d, Queue: %s)...", brokerOpts.Addr, brokerOpts.DB, cfg.Queue)
	q := queue.NewRedisQueue(brokerOpts, cfg.Queue, log)
	defer q.Close()

	b := backend.NewRedisBackend(backendOpts, cfg.ResultExpires)
	defer b.Close()

	// 2. Dispatcher with the send_event task
	sender := event.NewSender(&http.Client{Timeout: cfg.HTTPTimeout}, log)
	d := worker.NewDispatcher(cfg.Concurrency, q, b, log)
	d.Register(event.TaskName, sender.Task())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Run(ctx)
		d.Wait()
		return nil
	})

	// 3. Optional enqueue API
	if cfg.Listen != "" {
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery())
		handler.NewEventHandler(producer.New(q, b), log).Register(router)

		srv := &http.Server{Addr: cfg.Listen, Handler: router}
		g.Go(func() error {
			log.Infof("Enqueue API listening on %s", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info("event-worker shut down")
	return err
}
