package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	echoapi "github.com/sadhanaschool/backend/apps/api/echo"
	"github.com/sadhanaschool/backend/apps/container"
	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/services/scheduler"
)

var newScheduler = scheduler.New // mockable

func main() {
	conf := core.NewConfig()
	logger := container.NewLogger(conf, "API : ")

	if err := run(conf, logger); err != nil {
		logger.Fatal(fmt.Sprintf("main: %v", err), err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	// =========================================================================
	// Set up Dependencies

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	ctx := context.Background()
	c, err := container.New(ctx, conf, logger, container.Options{Migrate: true})
	if err != nil {
		return errors.Wrap(err, "wiring dependencies")
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing connections: %v", err), err)
		}
	}()

	if err = c.Seed(ctx); err != nil {
		return err
	}

	// =========================================================================
	// Start Background Jobs

	sched := newScheduler(logger)
	if spec := conf.Scheduler.FeeReminderSpec; spec != "" {
		err = sched.Add("fee-reminders", spec, func(ctx context.Context) error {
			res, err := c.Fees.SweepOverdue(ctx, c.People)
			if err != nil {
				return err
			}
			logger.Info(fmt.Sprintf("fee sweep: %d overdue fees, %d reminders", res.OverdueFees, res.Reminders))
			return nil
		})
		if err != nil {
			return err
		}
	}
	sched.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := sched.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop scheduler: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Validate:   c.Validate,
		Translator: c.Translator,
		SignalShutdown: func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default:
			}
		},
		UserSvc:     c.Users,
		PeopleSvc:   c.People,
		AcademicSvc: c.Academic,
		FeeSvc:      c.Fees,
		Bot:         c.Bot,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}
