package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"restaurant-tables/internal/catalog"
	"restaurant-tables/internal/config"
	"restaurant-tables/internal/connections/database"
	"restaurant-tables/internal/connections/rabbitmq"
	"restaurant-tables/internal/events"
	"restaurant-tables/internal/locking"
	"restaurant-tables/internal/logger"
	"restaurant-tables/internal/notifier"
	"restaurant-tables/internal/repository"
	"restaurant-tables/internal/services/bills"
	"restaurant-tables/internal/services/orders"
	"restaurant-tables/internal/services/tables"
	transport "restaurant-tables/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	port := flag.Int("port", 0, "http port (overrides config)")
	flag.Parse()

	lg := logger.New("table-service")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		lg.Error("config_load", err, nil)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	var (
		tableRepo repository.TableRepositoryInterface
		billRepo  repository.BillRepositoryInterface
		orderRepo repository.OrderRepositoryInterface
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := repository.NewMemoryStore()
		store.SeedDefaultFloor()
		tableRepo, billRepo, orderRepo = store, store, store
		lg.Info("storage_ready", map[string]any{"driver": "memory"})
	default:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			lg.Error("db_connect", err, nil)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			lg.Error("db_migrate", err, nil)
			os.Exit(1)
		}
		if err := database.SeedTables(ctx, db); err != nil {
			lg.Error("db_seed", err, nil)
			os.Exit(1)
		}
		tableRepo = repository.NewTableRepository(db)
		billRepo = repository.NewBillRepository(db)
		orderRepo = repository.NewOrderRepository(db)
		lg.Info("storage_ready", map[string]any{"driver": "postgres", "host": cfg.Database.Host})
	}

	var menu catalog.Catalog
	if cfg.Catalog.BaseURL != "" {
		client, err := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.CacheSize)
		if err != nil {
			lg.Error("catalog_init", err, nil)
			os.Exit(1)
		}
		menu = client
	} else {
		menu = catalog.NewStatic(catalog.DefaultMenu()...)
	}

	var (
		pub events.Publisher = events.NopPublisher{}
		mq  *rabbitmq.Client
	)
	if cfg.RabbitMQ.Host != "" {
		mq, err = rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			lg.Error("rabbitmq_dial", err, nil)
			os.Exit(1)
		}
		defer mq.Close()
		if err := mq.DeclareTopology(); err != nil {
			lg.Error("rabbitmq_declare", err, nil)
			os.Exit(1)
		}
		pub = events.NewAMQPPublisher(mq)
	}

	locks := locking.NewKeyed()
	tableSvc := tables.NewTableService(tableRepo, pub, locks)
	billSvc := bills.NewBillService(billRepo, orderRepo, tableSvc, menu, pub, locks)
	orderSvc := orders.NewOrderService(orderRepo, billRepo, tableRepo, tableSvc, billSvc, menu, pub, locks)

	handler := transport.NewHandler(tableSvc, orderSvc, billSvc)
	srv := transport.NewServer(":"+strconv.Itoa(cfg.Server.Port), transport.Router(handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("service_started", map[string]any{"port": cfg.Server.Port})
		return srv.Run(gctx)
	})
	if mq != nil {
		g.Go(func() error {
			return notifier.New(mq).Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		lg.Error("fatal", err, nil)
		os.Exit(1)
	}
}
