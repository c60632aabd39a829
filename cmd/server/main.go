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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/bistro/gateway"
	"github.com/example/bistro/pkg/cart"
	"github.com/example/bistro/pkg/checkout"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/discovery"
	"github.com/example/bistro/pkg/events"
	"github.com/example/bistro/pkg/grpc"
	"github.com/example/bistro/pkg/logging"
	"github.com/example/bistro/pkg/order"
	"github.com/example/bistro/pkg/repository"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./config/config.yaml)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := repository.OpenDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer repository.CloseDatabase(db)

	if err := repository.Migrate(db); err != nil {
		return err
	}

	menu := repository.NewMenuStore(db)
	if cfg.Database.Seed {
		seeded, err := menu.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		if seeded {
			logger.Info("Seeded default menu")
		}
	}

	opts, cleanup, err := orderOptions(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	var cartStore cart.Store = cart.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		redis := repository.NewRedisRepository(&cfg.Redis)
		defer redis.Close()
		if err := redis.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed, carts and order cache stay in-process", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully")
			cartStore = redis.CartBlobs(cfg.Cart.TTL)
			opts = append(opts, order.WithCache(redis.OrderCache(cfg.Orders.CacheTTL)))
		}
	}

	orders := order.NewService(repository.NewOrderStore(db), menu, logger, opts...)
	defer orders.Close()

	carts := cart.NewManager(cartStore, cart.ManagerConfig{
		IdleTimeout:    cfg.Cart.IdleTimeout,
		RequestTimeout: cfg.Cart.RequestTimeout,
	}, logger)
	defer carts.Close()

	gw := gateway.NewGateway(gateway.Dependencies{
		Orders:   orders,
		Menu:     menu,
		Carts:    carts,
		Checkout: checkout.NewOrchestrator(orders, carts, logger),
		Health:   func(ctx context.Context) error { return repository.Ping(ctx, db) },
	}, logger)
	httpServer := gw.Server(cfg.Gateway.Addr())
	grpcServer := grpc.NewOrderServer(orders, logger).NewServer()

	sd := register(ctx, cfg, logger)
	if sd != nil {
		defer sd.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP gateway started", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http gateway: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return grpc.Serve(grpcServer, cfg.Server.Addr(), logger)
	})
	g.Go(func() error {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
		case <-gctx.Done():
		}

		if sd != nil {
			deregister(sd, cfg, logger)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// orderOptions connects the optional side stores. Each one that cannot be
// reached is logged and left out.
func orderOptions(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]order.Option, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	policy, err := order.ParsePricePolicy(cfg.Orders.PricePolicy)
	if err != nil {
		return nil, cleanup, err
	}
	opts := []order.Option{order.WithPricePolicy(policy)}
	if cfg.Orders.StrictTransitions {
		opts = append(opts, order.WithTransitions(order.ForwardOnly()))
	}

	if cfg.MongoDB.URI != "" {
		mongo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			logger.Warn("MongoDB unavailable, audit trail disabled", zap.Error(err))
		} else {
			closers = append(closers, func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = mongo.Close(ctx)
			})
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := mongo.Ping(pingCtx); err != nil {
				logger.Warn("MongoDB ping failed, audit writes may be dropped", zap.Error(err))
			}
			cancel()
			opts = append(opts, order.WithAudit(mongo))
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Warn("Kafka unavailable, order events disabled", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = publisher.Close() })
			opts = append(opts, order.WithPublisher(publisher))
		}
	}

	return opts, cleanup, nil
}

func instance(cfg *config.Config) *discovery.ServiceInstance {
	return &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
}

// register announces the gRPC listener in etcd. Without etcd the server
// still runs; clients then need an explicit address.
func register(ctx context.Context, cfg *config.Config, logger *zap.Logger) *discovery.ServiceDiscovery {
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil
	}
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		return nil
	}
	if err := sd.Register(ctx, instance(cfg)); err != nil {
		logger.Warn("Failed to register service", zap.Error(err))
		sd.Close()
		return nil
	}
	logger.Info("Service registered in etcd",
		zap.String("name", cfg.Server.Name),
		zap.String("address", cfg.Server.Addr()))
	return sd
}

func deregister(sd *discovery.ServiceDiscovery, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sd.Deregister(ctx, instance(cfg)); err != nil {
		logger.Error("Failed to deregister service", zap.Error(err))
	}
}
