package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/buffet-bingo/configs"
	"github.com/avvvet/buffet-bingo/internal/db"
	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/media"
	nats "github.com/avvvet/buffet-bingo/internal/nats"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/broker"
	tablecfg "github.com/avvvet/buffet-bingo/internal/tablesvc/config"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/handlers"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/memstore"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/store"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/sweeper"
)

const SERVICE_NAME = "table"

func init() {
	config.LoadEnv(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service")
}

type backend struct {
	stores   service.Stores
	accounts identity.AccountStore
	media    service.MediaStore
	files    handlers.MediaFiles
	notifier service.Notifier
	source   scoreboard.Source
	closers  []func()
}

func main() {
	cfg, err := tablecfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	instanceId := config.CreateUniqueInstance(SERVICE_NAME)

	var b *backend
	switch cfg.StoreDriver {
	case tablecfg.DriverMemory:
		b = memoryBackend(cfg)
	default:
		b, err = mongoBackend(cfg, instanceId)
		if err != nil {
			log.Fatalf("Failed to start backend: %v", err)
		}
	}
	defer func() {
		for i := len(b.closers) - 1; i >= 0; i-- {
			b.closers[i]()
		}
	}()

	if cfg.HallOfFameDSN != "" {
		if err := usePostgresHallOfFame(b, cfg.HallOfFameDSN); err != nil {
			log.Fatalf("Failed to start hall of fame store: %v", err)
		}
	}

	provider := identity.NewProvider(b.accounts, cfg.JWTSecret)
	svc := service.NewTableService(b.stores, b.media, provider, b.notifier, service.Options{
		ActivityWindow: cfg.CodeActivityWindow,
		CodeAttempts:   cfg.CodeMaxAttempts,
	})

	sw := sweeper.New(b.stores.Tables, cfg.CodeActivityWindow, cfg.SweepInterval)
	if err := sw.Start(); err != nil {
		log.Fatalf("Failed to start code sweeper: %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(handlers.Deps{
		Service:       svc,
		Identity:      provider,
		Source:        b.source,
		Media:         b.files,
		PublicBaseURL: cfg.PublicBaseURL,
		ToastDuration: cfg.JoinToastDuration,
		Port:          cfg.Port,
	})
	h.SetRoutes(r)

	// Create server with timeout settings. No write timeout: the scoreboard
	// socket is long lived and sets its own write deadlines.
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s with %s store", SERVICE_NAME, server.Addr, cfg.StoreDriver)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := sw.Stop(); err != nil {
		log.Warnf("code sweeper shutdown: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
		return
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// memoryBackend keeps everything in process; suitable for local play and demos.
func memoryBackend(cfg tablecfg.Config) *backend {
	ms := memstore.New()
	publicBase := cfg.MediaPublicBaseURL
	if publicBase == "" {
		publicBase = "http://localhost:" + cfg.Port + "/media"
	}
	files := memstore.NewMedia(publicBase)

	log.Warn("using in-memory store, data is lost on restart")
	return &backend{
		stores:   service.Stores{Tables: ms, Players: ms, HallOfFame: ms, Visits: ms},
		accounts: ms,
		media:    files,
		files:    files,
		source:   ms,
	}
}

func mongoBackend(cfg tablecfg.Config, instanceId string) (*backend, error) {
	database, closeDB, err := db.ConnectToDB(cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	b := &backend{closers: []func(){closeDB}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return nil, err
	}

	tables := store.NewTableStore(database)
	players := store.NewPlayerStore(database)
	b.stores = service.Stores{
		Tables:     tables,
		Players:    players,
		HallOfFame: store.NewHallOfFameStore(database),
		Visits:     store.NewVisitStore(database),
	}
	b.accounts = store.NewAccountStore(database)

	s3, err := media.NewS3Store(ctx, media.Config{
		Endpoint:        cfg.MediaEndpoint,
		Region:          cfg.MediaRegion,
		Bucket:          cfg.MediaBucket,
		AccessKeyID:     cfg.MediaAccessKeyID,
		AccessKeySecret: cfg.MediaAccessKeySecret,
		PublicBaseURL:   cfg.MediaPublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	b.media = s3

	// Connect to NATS; feeds resync after every reconnect
	var ready atomic.Pointer[broker.Broker]
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId, func() {
		if brk := ready.Load(); brk != nil {
			brk.Resync()
		}
	})
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, n.Conn.Close)
	log.Printf("NATS connection established successfully %s", n.Url)

	brk := broker.NewBroker(n.Conn, instanceId, broker.StoreLoader(tables, players))
	ready.Store(brk)
	b.notifier = brk
	b.source = brk
	return b, nil
}

// usePostgresHallOfFame moves the global hall of fame to Postgres while the
// tables stay in the session store.
func usePostgresHallOfFame(b *backend, dsn string) error {
	pool, err := db.ConnectPostgres(dsn)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureHallOfFameSchema(ctx, pool); err != nil {
		return err
	}

	b.stores.HallOfFame = store.NewPgHallOfFameStore(pool)
	log.Info("hall of fame is kept in postgres")
	return nil
}
