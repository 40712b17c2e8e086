package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	"github.com/go-sif/segments/config"
	"github.com/go-sif/segments/store/memory"
	"github.com/go-sif/segments/store/redis"
	"github.com/go-sif/segments/store/rpc"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

// serveCommand serves the configured store backend over gRPC until interrupted
type serveCommand struct {
	g             *globalFlags
	listenAddress string
	metricsAddr   string
}

func (cmd *serveCommand) run(_ *kingpin.ParseContext) error {
	opts, err := cmd.g.options()
	if err != nil {
		return err
	}
	if len(cmd.listenAddress) > 0 {
		opts.ListenAddress = cmd.listenAddress
	}
	logger, err := cmd.g.logger(opts)
	if err != nil {
		return err
	}
	store, closeStore, err := openBackend(opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	lis, err := net.Listen("tcp", opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	server := rpc.NewServer(store, opts.ServerOptions(logger, prometheus.DefaultRegisterer))

	var g run.Group
	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		return server.Serve(lis)
	}, func(error) {
		server.GracefulStop()
	})
	if len(cmd.metricsAddr) > 0 {
		metricsServer := &http.Server{Addr: cmd.metricsAddr, Handler: promhttp.Handler()}
		g.Add(func() error {
			level.Info(logger).Log("msg", "serving metrics", "addr", cmd.metricsAddr)
			return serveMetrics(metricsServer)
		}, func(error) {
			_ = metricsServer.Close()
		})
	}
	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		level.Info(logger).Log("msg", "shutting down", "signal", sig.Signal)
		return nil
	}
	return err
}

// openBackend creates the Store selected by the configuration
// serveMetrics runs srv until it is closed; a closed server is a clean exit
func serveMetrics(srv *http.Server) error {
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openBackend(opts *config.Options, logger log.Logger) (segments.Store, func(), error) {
	switch opts.StoreBackend {
	case config.RedisBackend:
		client := goredis.NewClient(&goredis.Options{Addr: opts.RedisAddress})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("unable to reach redis at %s: %w", opts.RedisAddress, err)
		}
		level.Info(logger).Log("msg", "using redis store", "addr", opts.RedisAddress, "prefix", opts.RedisPrefix)
		return redis.New(client, opts.RedisPrefix, logger), func() { _ = client.Close() }, nil
	default:
		level.Info(logger).Log("msg", "using in-memory store", "shards", opts.StoreShards)
		return memory.New(opts.MemoryStoreOptions(logger)), func() {}, nil
	}
}

func addServeCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &serveCommand{g: g}
	serve := app.Command("serve", "Serve a store over gRPC until interrupted.").Action(cmd.run)
	serve.Flag("listen", "Address to serve the store on").StringVar(&cmd.listenAddress)
	serve.Flag("metrics.listen", "Address to serve Prometheus metrics on, if any").StringVar(&cmd.metricsAddr)
}
