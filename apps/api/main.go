package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/benbjohnson/clock"

	"github.com/trezcool/schulportal/apps/api/echo"
	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/session"
	"github.com/trezcool/schulportal/core/zuordnung"
	"github.com/trezcool/schulportal/services/backend"
	"github.com/trezcool/schulportal/services/email"
	"github.com/trezcool/schulportal/services/logger"
	"github.com/trezcool/schulportal/storage/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Wait()

	mailLogger := log.New(os.Stdout, "MAIL : ", log.LstdFlags|log.Lmicroseconds)

	// set up services
	mailSvc := emailsvc.NewService(conf, logger, mailLogger)

	errCodes, err := errcode.NewTranslator(conf.Locale)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up error translations: %v", err), err)
	}

	client := backendsvc.NewClient(conf, logger)
	sessions := session.NewService(
		inmem.NewSessionRepository(),
		backendsvc.NewSessionFactory(client, conf, logger),
		conf.Session.IdleTTL,
		logger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	zuordnung.RegisterValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("sessions", expvar.Func(func() interface{} { return sessions.Count() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Session Sweeper

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweepSessions(sweepCtx, clock.New(), sessions, conf.Session, logger)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Sessions:   sessions,
			EmailSvc:   mailSvc,
			Validate:   validate,
			Translator: translator,
			ErrorCodes: errCodes,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// sweepSessions closes idle sessions every conf.SweepInterval until ctx is done.
func sweepSessions(ctx context.Context, clk clock.Clock, sessions *session.Service, conf core.SessionConfig, logger core.Logger) {
	if conf.SweepInterval <= 0 {
		return
	}
	ticker := clk.Ticker(conf.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := sessions.Sweep()
			if err != nil {
				logger.Error("sweeping sessions", err)
				continue
			}
			if closed > 0 {
				logger.Info(fmt.Sprintf("closed %d idle sessions", closed))
			}
		}
	}
}
