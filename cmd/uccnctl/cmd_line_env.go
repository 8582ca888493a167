package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/uccn-net/uccn-go/src/config"
)

type CmdLineEnv struct {
	args                 []string
	endpoint, server     string
	injson, verbose, ver bool
}

func newCmdLineEnv() CmdLineEnv {
	var cmdLineEnv CmdLineEnv
	cmdLineEnv.endpoint = config.GetDefaults().DefaultAdminListen
	return cmdLineEnv
}

func (cmdLineEnv *CmdLineEnv) parseFlagsAndArgs() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] command [key=value] [key=value] ...\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Please note that options must always specified BEFORE the command\non the command line or they will be ignored.")
		fmt.Println()
		fmt.Println("Commands:\n  - Use \"list\" for a list of available commands")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  - ", os.Args[0], "list")
		fmt.Println("  - ", os.Args[0], "getPeers")
		fmt.Println("  - ", os.Args[0], "-v getSelf")
		fmt.Println("  - ", os.Args[0], "-endpoint=tcp://localhost:9003 getTrackers")
		fmt.Println("  - ", os.Args[0], "-endpoint=unix:///var/run/uccn.sock getProviders")
	}

	server := flag.String("endpoint", cmdLineEnv.endpoint, "Admin socket endpoint")
	injson := flag.Bool("json", false, "Output in JSON format (as opposed to pretty-print)")
	verbose := flag.Bool("v", false, "Verbose output (includes build details and resource hashes)")
	ver := flag.Bool("version", false, "Prints the version of this build")

	flag.Parse()

	cmdLineEnv.args = flag.Args()
	cmdLineEnv.server = *server
	cmdLineEnv.injson = *injson
	cmdLineEnv.verbose = *verbose
	cmdLineEnv.ver = *ver
}

func (cmdLineEnv *CmdLineEnv) setEndpoint(logger *log.Logger) {
	if cmdLineEnv.server != cmdLineEnv.endpoint {
		cmdLineEnv.endpoint = cmdLineEnv.server
		logger.Println("Using endpoint", cmdLineEnv.endpoint, "from command line")
		return
	}
	defaults := config.GetDefaults()
	f, err := os.Open(defaults.DefaultConfigFile)
	if err != nil {
		logger.Println("Can't open config file from default location", defaults.DefaultConfigFile)
		logger.Println("Falling back to platform default", defaults.DefaultAdminListen)
		return
	}
	defer f.Close()
	cfg := config.GenerateConfig()
	if _, err := cfg.ReadFrom(f); err != nil {
		panic(err)
	}
	if ep := cfg.AdminListen; ep != "none" && ep != "" {
		cmdLineEnv.endpoint = ep
		logger.Println("Found platform default config file", defaults.DefaultConfigFile)
		logger.Println("Using endpoint", cmdLineEnv.endpoint, "from AdminListen")
	} else {
		logger.Println("Configuration file doesn't contain appropriate AdminListen option")
		logger.Println("Falling back to platform default", defaults.DefaultAdminListen)
	}
}
