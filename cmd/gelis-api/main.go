// README: Entry point; loads config, wires services, starts HTTP server and background loops.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gelis/internal/config"
	httptransport "gelis/internal/http"
	"gelis/internal/infra"
	"gelis/internal/logger"
	"gelis/internal/modules/cart"
	"gelis/internal/modules/dispatch"
	"gelis/internal/modules/driver"
	"gelis/internal/modules/order"
	"gelis/internal/modules/pricing"
	"gelis/internal/modules/warung"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("postgres init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	warungStore := warung.NewPGStore(dbPool)
	pricingSvc := pricing.NewService(pricing.NewStore(dbPool))
	orderSvc := order.NewService(order.NewPGStore(dbPool), pricingSvc, warungStore)
	driverSvc := driver.NewService(driver.NewPGStore(dbPool), orderSvc)
	cartSvc := cart.NewService(cart.NewRedisStore(redisClient), orderSvc, warungStore)

	notifier := dispatch.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.AssignmentTopic)
	defer notifier.Close()

	dispatchSvc := dispatch.NewService(
		orderSvc, driverSvc, warungStore,
		dispatch.NewRedisStore(redisClient),
		notifier, cfg.Dispatch,
	)
	defer dispatchSvc.Stop()

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:   orderSvc,
		Carts:    cartSvc,
		Drivers:  driverSvc,
		Dispatch: dispatchSvc,
		Warungs:  warungStore,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go dispatchSvc.RunRescan(ctx)
	go dispatchSvc.RunReconcile(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("gelis api listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}
