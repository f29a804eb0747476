// Command msgrelayd relays messages sent to the message predicate's
// address to the contracts their data names.
package main

import (
	"context"
	"database/sql"
	"flag"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	contractmsg "github.com/FuelLabs/bridge-message-predicates"
	"github.com/FuelLabs/bridge-message-predicates/devnode"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/signer"
	"github.com/FuelLabs/bridge-message-predicates/store"
	"github.com/interstellar/starlight/env"
	snet "github.com/interstellar/starlight/net"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	var (
		addr      = flag.String("addr", env.String("MSGRELAY_ADDR", "localhost:2424"), "status server listen address")
		dbfile    = flag.String("db", env.String("MSGRELAY_DB", "msgrelay.db"), "path to db")
		nodeURL   = flag.String("node", env.String("MSGRELAY_NODE", ""), "node url")
		dev       = flag.Bool("devnode", env.Bool("MSGRELAY_DEVNODE", false), "run an in-process development node, served under /node/")
		fund      = flag.Uint64("fund", 10*contractmsg.MinGasLimit, "with -devnode, mint a fee coin of this amount to the relayer")
		keyhex    = flag.String("key", env.String("MSGRELAY_KEY", ""), "hex-encoded ed25519 private key of the fee payer")
		cfgfile   = flag.String("config", env.String("MSGRELAY_CONFIG", ""), "TOML config file")
		artifacts = flag.String("artifacts", env.String("MSGRELAY_ARTIFACTS", ""), "directory written by genprogs (default: build the default programs)")
		logfile   = flag.String("log", env.String("MSGRELAY_LOG", ""), "also write the log to this file, rotated")
	)
	flag.Parse()

	if *logfile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   *logfile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := contractmsg.DefaultConfig()
	if *cfgfile != "" {
		var err error
		cfg, err = contractmsg.LoadConfig(*cfgfile)
		if err != nil {
			log.Fatal(err)
		}
	}

	a := contractmsg.DefaultArtifacts
	if *artifacts != "" {
		var err error
		a, err = contractmsg.ReadArtifacts(*artifacts)
		if err != nil {
			log.Fatal(err)
		}
		err = contractmsg.CheckDrift(a)
		if err != nil {
			log.Fatal(err)
		}
	}

	var s *signer.Signer
	switch {
	case *keyhex != "":
		var err error
		s, err = signer.FromHex(*keyhex)
		if err != nil {
			log.Fatal(err)
		}
	case *dev:
		var err error
		s, err = signer.Generate()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("generated relayer key %x", []byte(s.PrivateKey()))
	default:
		log.Fatal("must specify -key")
	}

	mux := http.NewServeMux()

	var node contractmsg.NodeClient
	switch {
	case *dev:
		n := devnode.New()
		defer n.Close()
		n.Mint(s.Address(), fuel.BaseAsset, *fund)
		mux.Handle("/node/", http.StripPrefix("/node", n.Handler()))
		node = n
	case *nodeURL != "":
		node = devnode.NewClient(*nodeURL)
	default:
		log.Fatal("must specify -node or -devnode")
	}

	db, err := sql.Open("sqlite3", *dbfile)
	if err != nil {
		log.Fatalf("error opening db: %s", err)
	}
	defer db.Close()
	st, err := store.New(ctx, db)
	if err != nil {
		log.Fatal(err)
	}
	go st.ExpireRecords(ctx, time.Duration(cfg.RecordTTL), time.Hour)

	r, err := contractmsg.NewRelayer(cfg, a, node, s)
	if err != nil {
		log.Fatal(err)
	}
	r.Store = st
	mux.Handle("/", r.Handler())

	if !snet.IsLoopback(*addr) {
		log.Printf("warning: status server on non-loopback address %s", *addr)
	}
	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal(err)
	}
	server := &http.Server{Handler: mux}
	go server.Serve(listener)

	log.Printf("listening on %s, predicate root %s, script hash %s, fee payer %s",
		listener.Addr(), a.PredicateRoot, a.ScriptHash, s.Address())

	r.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}
