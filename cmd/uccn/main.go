package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gologme/log"
	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/hjson/hjson-go/v4"
	"github.com/kardianos/minwinsvc"

	"github.com/uccn-net/uccn-go/src/admin"
	"github.com/uccn-net/uccn-go/src/config"
	"github.com/uccn-net/uccn-go/src/core"
	"github.com/uccn-net/uccn-go/src/monitoring"
	"github.com/uccn-net/uccn-go/src/version"
)

type node struct {
	core       *core.Node
	admin      *admin.AdminSocket
	monitoring *monitoring.Monitoring
	providers  map[string]*core.Provider
}

// The main function is responsible for configuring and starting uccn.
func main() {
	genconf := flag.Bool("genconf", false, "print a new config to stdout")
	useconf := flag.Bool("useconf", false, "read HJSON/JSON config from stdin")
	useconffile := flag.String("useconffile", "", "read HJSON/JSON config from specified file path")
	normaliseconf := flag.Bool("normaliseconf", false, "use in combination with either -useconf or -useconffile, outputs your configuration normalised")
	confjson := flag.Bool("json", false, "print configuration from -genconf or -normaliseconf as JSON instead of HJSON")
	ver := flag.Bool("version", false, "prints the version of this build")
	logto := flag.String("logto", "stdout", "file path to log to, \"syslog\" or \"stdout\"")
	loglevel := flag.String("loglevel", "info", "loglevel to enable")
	flag.Parse()

	// Catch interrupts from the operating system to exit gracefully.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Capture the service being stopped on Windows.
	minwinsvc.SetOnExit(cancel)

	// Create a new logger that logs output to stdout.
	var logger *log.Logger
	switch *logto {
	case "stdout":
		logger = log.New(os.Stdout, "", log.Flags())

	case "syslog":
		if syslogger, err := gsyslog.NewLogger(gsyslog.LOG_NOTICE, "DAEMON", version.BuildName()); err == nil {
			logger = log.New(syslogger, "", log.Flags()&^(log.Ldate|log.Ltime))
		}

	default:
		if logfd, err := os.OpenFile(*logto, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			logger = log.New(logfd, "", log.Flags())
		}
	}
	if logger == nil {
		logger = log.New(os.Stdout, "", log.Flags())
		logger.Warnln("Logging defaulting to stdout")
	}
	if *normaliseconf {
		setLogLevel("error", logger)
	} else {
		setLogLevel(*loglevel, logger)
	}

	cfg := config.GenerateConfig()
	var err error
	switch {
	case *ver:
		fmt.Println(version.Summary())
		return

	case *useconf:
		if _, err := cfg.ReadFrom(os.Stdin); err != nil {
			panic(err)
		}

	case *useconffile != "":
		f, err := os.Open(*useconffile)
		if err != nil {
			panic(err)
		}
		if _, err := cfg.ReadFrom(f); err != nil {
			panic(err)
		}
		_ = f.Close()

	case *genconf:
		cfg.AdminListen = ""
		printConfig(cfg, *confjson)
		return

	default:
		fmt.Println("Usage:")
		flag.PrintDefaults()
		return
	}

	if *normaliseconf {
		printConfig(cfg, *confjson)
		return
	}

	network, options, err := cfg.SetupOptions()
	if err != nil {
		panic(err)
	}
	// Posting from stdin, the admin socket and metrics all reach into the
	// node while it spins.
	if len(cfg.Advertise) > 0 || (cfg.AdminListen != "" && cfg.AdminListen != "none") || cfg.MetricsListen != "" {
		options = append(options, core.Multithreaded(true))
	}

	n := &node{providers: make(map[string]*core.Provider)}

	// Set up the uccn node itself.
	if n.core, err = core.New(network, cfg.NodeName, logger, options...); err != nil {
		panic(err)
	}
	logger.Printf("Your node is %s at %s", n.core.Name(), n.core.Address())
	logger.Printf("Discovery is broadcast to %s", n.core.BroadcastAddress())

	// Register the configured resources.
	for _, path := range cfg.Track {
		r, err := core.NewResource(path)
		if err != nil {
			panic(err)
		}
		if _, err := n.core.Track(r, func(t *core.Tracker, content interface{}) {
			logger.Infof("%s: %q\n", t.Resource().Path(), content.([]byte))
		}); err != nil {
			panic(err)
		}
	}
	for _, path := range cfg.Advertise {
		r, err := core.NewResource(path)
		if err != nil {
			panic(err)
		}
		if n.providers[path], err = n.core.Advertise(r); err != nil {
			panic(err)
		}
	}

	// Set up the admin socket.
	if n.admin, err = admin.New(n.core, logger, admin.ListenAddress(cfg.AdminListen)); err != nil {
		panic(err)
	}
	if n.admin != nil {
		n.admin.SetupAdminHandlers()
	}

	// Set up metrics.
	if cfg.MetricsListen != "" {
		if n.monitoring, err = monitoring.New(n.core, logger, monitoring.MetricsListen(cfg.MetricsListen)); err != nil {
			panic(err)
		}
	}

	if len(n.providers) > 0 {
		go n.postLines(os.Stdin, logger)
	}

	// Spin until we are told to shut down.
	go func() {
		<-ctx.Done()
		_ = n.core.Stop()
	}()
	if err := n.core.Spin(core.NoTimeout); err != nil {
		logger.Errorln("Node stopped:", err)
	}

	// Shut down the node.
	_ = n.monitoring.Stop()
	_ = n.admin.Stop()
	_ = n.core.Close()
}

// postLines posts every "/path content" line read from r to the provider
// of path.
func (n *node) postLines(r io.Reader, logger *log.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		path, content, ok := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		if !ok || content == "" {
			logger.Warnln("Expected \"/path content\", got", scanner.Text())
			continue
		}
		provider, ok := n.providers[path]
		if !ok {
			logger.Warnln("Not advertising", path)
			continue
		}
		sent, err := provider.Post([]byte(content))
		if err != nil {
			logger.Errorln("Failed to post:", err)
			continue
		}
		logger.Debugf("Posted %d bytes to %d peer(s) tracking %s\n", len(content), sent, path)
	}
}

func printConfig(cfg *config.NodeConfig, asJSON bool) {
	var bs []byte
	var err error
	if asJSON {
		bs, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		bs, err = hjson.Marshal(cfg)
	}
	if err != nil {
		panic(err)
	}
	fmt.Println(string(bs))
}

func setLogLevel(loglevel string, logger *log.Logger) {
	levels := [...]string{"error", "warn", "info", "debug", "trace"}
	loglevel = strings.ToLower(loglevel)

	contains := func() bool {
		for _, l := range levels {
			if l == loglevel {
				return true
			}
		}
		return false
	}

	if !contains() { // set default log level
		logger.Infoln("Loglevel parse failed. Set default level(info)")
		loglevel = "info"
	}

	for _, l := range levels {
		logger.EnableLevel(l)
		if l == loglevel {
			break
		}
	}
}
