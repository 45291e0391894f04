package main

import (
	"log"
	"os"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/zuordnung"
	"github.com/trezcool/schulportal/services/backend"
	"github.com/trezcool/schulportal/services/logger"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(false) // runs from an operator's machine are not reported

	errCodes, err := errcode.NewTranslator(conf.Locale)
	if err != nil {
		std.Fatal(err)
	}
	validate, translator := core.NewValidator()
	zuordnung.RegisterValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:       conf,
		client:     backendsvc.NewClient(conf, logger),
		logger:     logger,
		errCodes:   errCodes,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
