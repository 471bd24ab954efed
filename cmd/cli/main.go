// Command cli provisions pushauth accounts. It reads the same configuration
// as the server, so -d and DATABASE_DSN select the database.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/pushauth/internal/admin"
	"github.com/dmitrijs2005/pushauth/internal/logging"
	"github.com/dmitrijs2005/pushauth/internal/server"
	"github.com/dmitrijs2005/pushauth/internal/server/config"
	"github.com/dmitrijs2005/pushauth/internal/server/password"
	"github.com/dmitrijs2005/pushauth/internal/server/services"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, rm, err := server.OpenDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	logger := logging.NewJSON(os.Stderr, cfg.Debug)
	accounts := services.NewAccountService(db, rm, password.NewBcrypt(0), logger)

	app := admin.NewApp(accounts, os.Stdin, os.Stdout)
	if err := app.Run(ctx, admin.CommandArgs(os.Args[1:])); err != nil {
		db.Close()
		log.Fatalf("%v", err)
	}

}
