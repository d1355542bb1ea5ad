package main

import (
	_ "inabottle/cmd/hub-service/docs"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/bootstrap"
)

// @title           In a Bottle Hub Service API
// @version         1.0
// @description     REST API for hubs and their chat messages and reactions

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8082
// @BasePath  /

// @schemes   http https

func main() {
	bootstrap.Execute(bootstrap.NewRootCommand(constants.ServiceHub,
		"Stores hubs and serializes chat and reaction writes",
		func(cfg *config.Config, log logger.Logger) bootstrap.App { return NewApp(cfg, log) },
	))
}
