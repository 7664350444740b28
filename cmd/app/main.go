package main

import (
	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/cache"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/health"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/logging"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/service"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/transport"
)

func main() {
	fx.New(
		config.Module,
		logging.Module,
		db.Module,
		cache.Module,
		service.Module,
		transport.Module,
		health.Module,
	).Run()
}
