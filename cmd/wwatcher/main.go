package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"codeberg.org/mutker/wwatcher/internal/checkpoint"
	"codeberg.org/mutker/wwatcher/internal/config"
	"codeberg.org/mutker/wwatcher/internal/errors"
	"codeberg.org/mutker/wwatcher/internal/logger"
	"codeberg.org/mutker/wwatcher/internal/notify"
	"codeberg.org/mutker/wwatcher/internal/pid"
	"codeberg.org/mutker/wwatcher/internal/sampler"
	"codeberg.org/mutker/wwatcher/internal/sensor"
	"codeberg.org/mutker/wwatcher/internal/server"
	"codeberg.org/mutker/wwatcher/internal/shutdown"
	"codeberg.org/mutker/wwatcher/internal/status"
	"codeberg.org/mutker/wwatcher/internal/store"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2

	statusShutdownTimeout = 5 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "wwatcher: %v\n", err)
		return exitUsage
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Info().Int("pid", os.Getpid()).Msg("Starting wwatcher")

	if cfg.PIDFile != "" {
		if err := pid.Write(cfg.PIDFile); err != nil {
			logger.ErrorFor(err).Str("path", cfg.PIDFile).Msg("failed to write pid file")
			return exitFailed
		}
		defer func() {
			if err := pid.Remove(cfg.PIDFile); err != nil {
				logger.Warn().Err(err).Msg("failed to remove pid file")
			}
		}()
	}

	reader, err := sensor.New(sensor.Config{
		HumidityDevice:    cfg.HumidityDevice,
		TemperatureDevice: cfg.TemperatureDevice,
	})
	if err != nil {
		logger.ErrorFor(err).Msg("failed to initialize sensors")
		return exitFailed
	}

	ctx := context.Background()

	checkpoints, err := checkpoint.New(checkpoint.Config{DBPath: cfg.Checkpoint}, logger.Default())
	if err != nil {
		logger.ErrorFor(err).Msg("failed to initialize checkpoints")
		return exitFailed
	}

	samples := store.New(cfg.Samples)
	samples.LoadFrom(checkpoints.Load(ctx))

	flag := shutdown.NewFlag()
	signals := shutdown.Watch(flag)
	defer signals.Stop()

	srv := server.New(server.Config{Addr: net.JoinHostPort("", strconv.Itoa(cfg.Port))}, samples, flag)
	if err := srv.Listen(); err != nil {
		logger.ErrorFor(err).Int("port", cfg.Port).Msg("failed to start snapshot server")
		return exitFailed
	}

	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(); err != nil {
			logger.ErrorFor(err).Msg("snapshot server failed")
			flag.Set()
		}
	}()

	watchdog := notify.NewWatchdog()
	loop := sampler.New(reader, samples, checkpoints, flag,
		time.Duration(cfg.Timeout)*time.Second,
		sampler.WithHeartbeat(watchdog.Ping),
	)

	stopStatus := startStatus(cfg.StatusAddr, samples, loop, srv)
	defer stopStatus()

	notify.Ready()

	err = loop.Run(ctx)
	notify.Stopping()
	<-served

	logSamples(samples.Snapshot())

	if err != nil {
		logger.ErrorFor(err).Msg("final checkpoint failed")
		return exitFailed
	}

	logger.Info().Msg("Exiting...")

	return exitOK
}

// startStatus runs the optional HTTP status listener and returns its stop
// function.
func startStatus(addr string, samples *store.Store, loop *sampler.Loop, srv *server.Server) func() {
	if addr == "" {
		return func() {}
	}

	router := status.NewRouter(samples,
		func() string { return loop.State().String() },
		srv.ActiveConnections,
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           status.Handler(router, logger.AccessWriter()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Status server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("status server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to stop status server")
		}
	}
}

func logSamples(samples []store.Sample) {
	for _, s := range samples {
		logger.Info().
			Str("ts", s.Timestamp).
			Str("rH", strconv.FormatFloat(s.Humidity, 'f', 3, 64)).
			Str("temp", strconv.FormatFloat(s.Temperature, 'f', 3, 64)).
			Msg("")
	}
}
