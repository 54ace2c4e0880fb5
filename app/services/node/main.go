package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/app/services/node/handlers"
	"github.com/Caraveo/ZiaCoin-Network/business/web/metrics"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/gossip"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/state"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/bolt"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/disk"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/leveldb"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/memory"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/worker"
	"github.com/Caraveo/ZiaCoin-Network/foundation/events"
	"github.com/Caraveo/ZiaCoin-Network/foundation/logger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// protocolVersion is the gossip protocol version this node speaks.
const protocolVersion = "1.0.0"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Node struct {
			GossipHost        string        `conf:"default:0.0.0.0:8333"`
			DBDriver          string        `conf:"default:disk"`
			DBPath            string        `conf:"default:zdata/chain"`
			GenesisDifficulty int           `conf:"default:4"`
			TargetBlockTime   time.Duration `conf:"default:60s"`
			TxFreshness       time.Duration `conf:"default:1h"`
			NetworkTimeout    time.Duration `conf:"default:5s"`
			KnownPeers        []string
		}
		NameService struct {
			Folder string `conf:"default:zdata/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "ZIACOIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(` _____ ___    _    ____ ___ ___ _   _   _   _  ___  ____  _____ `)
	fmt.Println(`|__  /|_ _|  / \  / ___/ _ \_ _| \ | | | \ | |/ _ \|  _ \| ____|`)
	fmt.Println(`  / /  | |  / _ \| |  | | | | ||  \| | |  \| | | | | | | |  _|  `)
	fmt.Println(` / /_  | | / ___ \ |__| |_| | || |\  | | |\  | |_| | |_| | |___ `)
	fmt.Println(`/____||___/_/   \_\____\___/___|_| \_| |_| \_|\___/|____/|_____|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	// Select the configured storage driver for the chain.
	var strg ledger.Storage
	switch cfg.Node.DBDriver {
	case "disk":
		strg, err = disk.New(cfg.Node.DBPath)
	case "leveldb":
		strg, err = leveldb.New(cfg.Node.DBPath)
	case "bolt":
		strg, err = bolt.New(cfg.Node.DBPath)
	case "memory":
		strg, err = memory.New()
	default:
		return fmt.Errorf("unknown db driver %q", cfg.Node.DBDriver)
	}
	if err != nil {
		return fmt.Errorf("unable to open chain storage: %w", err)
	}

	// The gossip address is the identity this node advertises to its peers.
	host, portStr, err := net.SplitHostPort(cfg.Node.GossipHost)
	if err != nil {
		return fmt.Errorf("parsing gossip host: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("parsing gossip port: %w", err)
	}

	// Seed peers give the node its first entries in the routing table.
	var seeds []dht.Peer
	for _, kp := range cfg.Node.KnownPeers {
		seedHost, seedPortStr, err := net.SplitHostPort(kp)
		if err != nil {
			return fmt.Errorf("parsing known peer %q: %w", kp, err)
		}
		seedPort, err := strconv.Atoi(seedPortStr)
		if err != nil {
			return fmt.Errorf("parsing known peer %q: %w", kp, err)
		}
		seeds = append(seeds, dht.NewPeer(seedHost, seedPort))
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. For now, these raw messages are sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the ledger,
	// the mining engine and the peer routing table.
	st, err := state.New(state.Config{
		Host:              host,
		Port:              port,
		Version:           protocolVersion,
		Storage:           strg,
		GenesisDifficulty: cfg.Node.GenesisDifficulty,
		TargetBlockTime:   cfg.Node.TargetBlockTime,
		TxFreshness:       cfg.Node.TxFreshness,
		NetworkTimeout:    cfg.Node.NetworkTimeout,
		KnownPeers:        seeds,
		EvHandler:         ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the different workflows such as mining,
	// block and transaction sharing, reconciliation and peer discovery. The
	// worker will register itself with the state.
	worker.Run(st, ev)

	// Publish the chain gauges for scraping on the debug mux.
	metrics.RegisterNodeCollector(st)

	// =========================================================================
	// Start Gossip Service

	log.Infow("startup", "status", "gossip server starting", "host", cfg.Node.GossipHost)

	gsv := gossip.NewServer(gossip.ServerConfig{
		Host:      host,
		Port:      port,
		Handler:   st,
		Timeout:   cfg.Node.NetworkTimeout,
		EvHandler: ev,
	})
	if err := gsv.Start(); err != nil {
		return fmt.Errorf("unable to start gossip server: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()
		gsv.Shutdown(ctx)
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
