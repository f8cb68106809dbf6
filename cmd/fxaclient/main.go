package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	rxp "github.com/nicosta1132/rxp-go"
	"github.com/nicosta1132/rxp-go/config"
)

const usage = `Usage: fxaclient [-config file] X A P
X is the port number at which fxaclient should bind to
A is the IP address of the network emulator
P is the UDP port number of the network emulator`

func loadConfig() config.ClientConfig {
	var configPath, logLevel, outputDir string
	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.StringVar(&logLevel, "log-level", "", "A logging level: (trace, debug, info, warning, error)")
	flag.StringVar(&outputDir, "output-dir", "", "directory downloaded files are written to")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.DefaultClientConfig()
	if configPath != "" {
		loaded, err := config.LoadClient(configPath)
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
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg
}

func main() {
	cfg := loadConfig()
	config.SetupLogging(cfg.Log)
	opts, err := cfg.Options()
	if err != nil {
		log.Fatal(err)
	}

	client, err := rxp.DialClient(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Shutdown()
	log.Info("client started")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println()
		fmt.Println("Please enter one of the following commands:")
		fmt.Println("connect, get F, window W, disconnect, exit")
		fmt.Print(">> ")
		if !scanner.Scan() {
			return
		}
		if !runCommand(client, cfg, strings.Fields(scanner.Text())) {
			return
		}
	}
}

// runCommand executes one REPL line and reports whether the REPL continues.
func runCommand(client *rxp.Client, cfg config.ClientConfig, fields []string) bool {
	if len(fields) == 0 {
		return true
	}
	var err error
	switch {
	case fields[0] == "connect" && len(fields) == 1:
		err = client.Connect()
		if err == nil && cfg.WindowSize > rxp.DefaultWindowSize {
			err = client.UpdateWindow(strconv.Itoa(cfg.WindowSize))
		}
	case fields[0] == "get" && len(fields) == 2:
		err = client.Get(fields[1])
	case fields[0] == "window" && len(fields) == 2:
		err = client.UpdateWindow(fields[1])
	case fields[0] == "disconnect" && len(fields) == 1:
		err = client.Close()
	case fields[0] == "exit" && len(fields) == 1:
		return false
	default:
		fmt.Println("Please enter a valid command with correct spelling and spacing.")
		return true
	}
	if err != nil {
		log.Error(err)
	}
	return true
}
