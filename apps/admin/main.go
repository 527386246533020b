package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sadhanaschool/backend/apps/container"
	"github.com/sadhanaschool/backend/core"
)

func main() {
	conf := core.NewConfig()
	logger := container.NewLogger(conf, "ADMIN : ")
	ctx := context.Background()

	c, err := container.New(ctx, conf, logger, container.Options{})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up: %v", err), err)
	}

	var db *sql.DB
	if c.DB != nil {
		db = c.DB.DB
	}
	cli := commandLine{
		usrSvc: c.Users,
		db:     db,
		seed:   c.Seed,
		out:    os.Stdout,
	}
	err = cli.run(ctx, os.Args[1:])
	_ = c.Close()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		os.Exit(1)
	}
}
