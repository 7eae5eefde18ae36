package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/infinivision/relfile/config"
	"github.com/nnsgmsone/damrey/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: relfile [flags] command [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "\nflags:\n")
	flag.PrintDefaults()
}

func main() {
	confPath := flag.String("conf", "", "path to conf file")
	path := flag.String("file", "", "record file, overrides the conf file")
	recsize := flag.Int("recsize", 0, "payload bytes per record, overrides the conf file")
	records := flag.Int64("records", -1, "capacity of a new file, overrides the conf file")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if len(*path) > 0 {
		cfg.Path = *path
	}
	if *recsize > 0 {
		cfg.RecordSize = *recsize
	}
	if *records >= 0 {
		cfg.Records = *records
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.args {
		usage()
		os.Exit(2)
	}
	log := logger.New(cfg.LogWriter, "relfile")
	if err := run(cfg, log, cmd, args[1:]); err != nil {
		log.Errorf("%s failed: %v\n", args[0], err)
		os.Exit(1)
	}
}
