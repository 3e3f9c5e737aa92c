package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/sequence"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// storage agrupa los puertos que provee cada driver de almacenamiento.
type storage struct {
	txRunner interface {
		ledger.TxRunner
		sequence.TxRunner
		catalog.TxRunner
	}
	ledgers      repository.LedgerRepository
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	categories   repository.CategoryRepository
	users        repository.UserRepository
	stores       repository.StoreRepository
	audit        repository.AuditRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStorage(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	// Caché de lectura de ledgers (opcional)
	var ledgerCache ledger.LedgerCache = cache.NoopLedgerCache{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisLedgerCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, caché deshabilitada")
			_ = rc.Close()
		} else {
			ledgerCache = rc
			defer rc.Close()
		}
	}

	// Auditoría: tabla de auditoría y, si hay brokers, también Kafka
	auditDest := audit.Fanout{st.audit}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewAuditPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic))
		defer publisher.Close()
		auditDest = append(auditDest, publisher)
	}
	sink := audit.NewAsyncSink(auditDest, log, audit.Options{
		QueueSize: cfg.Audit.QueueSize,
		Workers:   cfg.Audit.Workers,
		PIIFields: cfg.Audit.PIIFields,
	})

	allocator := sequence.NewAllocator(st.txRunner, log)
	processUC := ledger.NewProcessTransactionUseCase(st.txRunner, ledgerCache, sink, log)
	ledgerUC := ledger.NewLedgerUseCase(ledger.Deps{
		TxRunner:    st.txRunner,
		LedgerRepo:  st.ledgers,
		TxRepo:      st.transactions,
		ProductRepo: st.products,
		StoreRepo:   st.stores,
		Cache:       ledgerCache,
		Sink:        sink,
		Logger:      log,
	})
	catalogUC := catalog.NewUseCase(catalog.Deps{
		TxRunner:     st.txRunner,
		Allocator:    allocator,
		CategoryRepo: st.categories,
		ProductRepo:  st.products,
		UserRepo:     st.users,
		StoreRepo:    st.stores,
		Sink:         sink,
		Logger:       log,
	})
	authUC := auth.NewAuthUseCase(st.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProcessTransaction: processUC,
		LedgerUC:           ledgerUC,
		CatalogUC:          catalogUC,
		AuthUC:             authUC,
		JWTSecret:          cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := sink.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Int64("dropped", sink.Dropped()).Msg("auditoría pendiente sin escribir")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg config.DBConfig) (*storage, error) {
	if cfg.Driver == config.StorageDriverMemory {
		s := memory.NewStore(memory.WithLockTimeout(cfg.LockTimeout))
		return &storage{
			txRunner:     s,
			ledgers:      s.Ledgers(),
			transactions: s.Transactions(),
			products:     s.Products(),
			categories:   s.Categories(),
			users:        s.Users(),
			stores:       s.Stores(),
			audit:        s.Audit(),
			close:        func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		txRunner:     postgres.NewTxRunner(pool, cfg.LockTimeout),
		ledgers:      postgres.NewLedgerRepository(pool),
		transactions: postgres.NewTransactionRepository(pool),
		products:     postgres.NewProductRepository(pool),
		categories:   postgres.NewCategoryRepository(pool),
		users:        postgres.NewUserRepository(pool),
		stores:       postgres.NewStoreRepository(pool),
		audit:        postgres.NewAuditRepository(pool),
		close:        pool.Close,
	}, nil
}
