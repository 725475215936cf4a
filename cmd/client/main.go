package main

import (
	"context"
	"log"

	"github.com/msavina/craftmarket/internal/client/cli"
	"github.com/msavina/craftmarket/internal/client/config"
	"github.com/msavina/craftmarket/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg, logging.NewDefault())
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)
}
