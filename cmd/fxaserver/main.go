package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	rxp "github.com/nicosta1132/rxp-go"
	"github.com/nicosta1132/rxp-go/config"
)

const usage = `Usage: fxaserver [-config file] X A P
X is the port number at which fxaserver should bind to
A is the IP address of the network emulator
P is the UDP port number of the network emulator`

func loadConfig() config.ServerConfig {
	var configPath, logLevel, rootDir string
	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.StringVar(&logLevel, "log-level", "", "A logging level: (trace, debug, info, warning, error)")
	flag.StringVar(&rootDir, "root-dir", "", "directory files are served from")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.DefaultServerConfig()
	if configPath != "" {
		loaded, err := config.LoadServer(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyArgs(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if rootDir != "" {
		cfg.RootDir = rootDir
	}
	return cfg
}

// readCommands cancels the server once the operator enters terminate or
// stdin is closed.
func readCommands(cancel context.CancelFunc) {
	defer cancel()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">> ")
		if !scanner.Scan() {
			return
		}
		if strings.TrimSpace(scanner.Text()) == "terminate" {
			fmt.Println("Exiting the server.")
			return
		}
		fmt.Println("Please enter a valid command (terminate).")
		fmt.Println("Still listening...")
	}
}

func main() {
	cfg := loadConfig()
	config.SetupLogging(cfg.Log)
	opts, err := cfg.Options()
	if err != nil {
		log.Fatal(err)
	}

	server, err := rxp.ListenServer(opts)
	if err != nil {
		log.Fatal(err)
	}
	log.Info("server started, listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go readCommands(stop)

	if err := server.Listen(ctx); err != nil {
		log.Fatal(err)
	}
}
