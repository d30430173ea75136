package main

import (
	"github.com/lattice-hq/orgtree/backend/internal/server"
	"github.com/lattice-hq/orgtree/backend/internal/util"
	"github.com/lattice-hq/orgtree/backend/pkg/logger"
	"github.com/lattice-hq/orgtree/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
