package main

import (
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/jonathanbglass/cloudauditor/internal/app"
	"github.com/jonathanbglass/cloudauditor/internal/config"
)

type options struct {
	configPath string
	checkOnly  bool
}

func parseFlags(errOut io.Writer, args []string) (options, error) {
	var opts options

	flagSet := flag.NewFlagSet("cloudauditor", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	flagSet.StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "path to configuration file")
	flagSet.BoolVar(&opts.checkOnly, "check", false, "validate the configuration and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Stderr, os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	if opts.checkOnly {
		fmt.Printf("configuration %s is valid\n", opts.configPath)
		return
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
