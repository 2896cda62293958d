package main

import (
	"errors"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	LogLevel string `name:"log.level" env:"LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)"`

	Check Check `cmd:"" help:"Check the targets once and print their availability."`
	Watch Watch `cmd:"" help:"Check the targets periodically and export the results as Prometheus metrics."`
}

func main() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("reachable"),
		kong.Description("Check whether hosts are reachable over ICMP or TCP."),
		kong.UsageOnError(),
	)

	err := kctx.Run(&cli)
	if errors.Is(err, errUnavailable) {
		os.Exit(1)
	}

	kctx.FatalIfErrorf(err)
}

func (c *CLI) Validate() error {
	if !isLogLevel(c.LogLevel) {
		return errors.New("--log.level: must be one of debug, info, warn, error")
	}

	return nil
}
