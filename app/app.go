package app

import (
	"github.com/lasoteam/laso-sync/config"
	"github.com/lasoteam/laso-sync/draft"
	"github.com/lasoteam/laso-sync/products"
	"github.com/lasoteam/laso-sync/queue"
	"github.com/lasoteam/laso-sync/submission"
)

type App struct {
	Drafts   *draft.Store
	Queue    *queue.Queue
	Catalog  products.Catalog
	Submit   *submission.Service
	config.Config
}
