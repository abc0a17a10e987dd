// Command plugwire loads a wiring config, wires every configured service
// from plugin modules and prints the resulting registrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kbukum/plugwire/bootstrap"
	"github.com/kbukum/plugwire/config"
	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("plugwire", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "path to the wiring config file")
	envFile := flags.StringP("env", "e", "", "path to a .env file")
	service := flags.StringP("service", "s", "plugwire", "host name used to locate config files")
	showVersion := flags.BoolP("version", "v", false, "print version information and exit")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return 0
	}

	opts := []config.LoaderOption{}
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}

	cfg, err := config.Load(*service, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plugwire: %v\n", err)
		return 1
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plugwire: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunTask(ctx, func(context.Context) error { return nil }); err != nil {
		app.Logger.Error("wiring failed", logger.MergeWithError(nil, err))
		return 1
	}
	return 0
}
