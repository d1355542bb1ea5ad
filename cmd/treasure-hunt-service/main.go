package main

import (
	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/bootstrap"
)

func main() {
	bootstrap.Execute(bootstrap.NewRootCommand(constants.ServiceTreasureHunt,
		"Creates treasure hunts and publishes their outbox",
		func(cfg *config.Config, log logger.Logger) bootstrap.App { return NewApp(cfg, log) },
	))
}
