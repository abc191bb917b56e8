package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"bomblog/internal/config"
	"bomblog/internal/logging"
)

const usage = `usage: bomblog [-config path] <command> [flags]

commands:
  start        start a new session
  log          log a completed round
  preview      settle a round without logging it
  stats        session or overall statistics
  recent       latest rounds of a session
  patterns     safe-pick pattern aggregates
  strategies   compare strategies
  report       write the analysis report
  export       export rounds as CSV
  import       import rounds from JSON or CSV
  backup       snapshot the database
  verify       check pattern aggregates against stored rounds
  sessions     list sessions
`

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	configFlag := flag.String("config", "", "Path to the TOML config file (default $BOMBLOG_CONFIG_PATH or bomblog.toml)")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		pterm.Error.Printfln("unknown command %q", name)
		flag.Usage()
		return 2
	}

	configPath := "bomblog.toml"
	if p := os.Getenv("BOMBLOG_CONFIG_PATH"); p != "" {
		configPath = p
	}
	if *configFlag != "" {
		configPath = *configFlag
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		pterm.Error.Printfln("loading config: %v", err)
		return 1
	}

	log := logging.New(logging.Config{
		Level:  cfg.General.LogLevel,
		Pretty: cfg.General.LogPretty,
	}, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialise")
		return 1
	}
	defer a.close()

	if err := cmd(ctx, a, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		pterm.Error.Println(err)
		return 1
	}
	return 0
}
