package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/lasoteam/laso-sync/app"
	"github.com/lasoteam/laso-sync/codec"
	"github.com/lasoteam/laso-sync/config"
	"github.com/lasoteam/laso-sync/draft"
	"github.com/lasoteam/laso-sync/log"
	"github.com/lasoteam/laso-sync/products"
	"github.com/lasoteam/laso-sync/queue"
	"github.com/lasoteam/laso-sync/routes"
	"github.com/lasoteam/laso-sync/storage"
	"github.com/lasoteam/laso-sync/submission"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("main.storage.open:", err)
	}

	catalog, err := products.Load(cfg.Products)
	if err != nil {
		log.Warn("main.products:", err)
		catalog = products.Catalog{}
	}

	sendQueue := queue.New(store, cfg.HTTPTimeout)
	drafts := draft.New(store, cfg.Debounce)

	app := app.App{
		Drafts:  drafts,
		Queue:   sendQueue,
		Catalog: catalog,
		Submit: submission.New(
			sendQueue, drafts, codec.Lookup(catalog.Lookup),
			cfg.JSONEndpoint, cfg.CSVEndpoint,
		),
		Config: cfg,
	}

	// drain whatever a previous session left behind
	sendQueue.Flush()
	stopFlush := sendQueue.StartPeriodicFlush(cfg.FlushEvery)
	defer stopFlush()

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DBUrl == "" {
		log.Warn("main.storage: no db file, drafts and queue will not survive a restart")
		return storage.NewMemory(), nil
	}
	return storage.Open(cfg.DBUrl)
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
