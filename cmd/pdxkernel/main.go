package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edirooss/pdxkernel/internal/config"
	"github.com/edirooss/pdxkernel/internal/http/router"
	"github.com/edirooss/pdxkernel/internal/infrastructure/console"
	"github.com/edirooss/pdxkernel/internal/infrastructure/snapstore"
	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/edirooss/pdxkernel/internal/workload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")

	// Handle version display
	handleVersion()
}

func main() {
	// Load config
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if os.Getenv("ENV") == "dev" {
		cfg.Dev = true
	}

	// Create Zap logger
	base := buildLogger(cfg.Debug)
	defer base.Sync()
	log := base.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Boot the kernel
	cons := console.New(base)
	k, err := kernel.New(base, cfg.KernelOptions(),
		kernel.WithConsole(cons),
		kernel.WithTickInterval(cfg.TickInterval),
	)
	if err != nil {
		log.Fatal("kernel creation failed", zap.Error(err))
	}

	argv := cfg.Init
	if argv[0] != "init" {
		argv = append([]string{"init"}, argv...)
	}
	initProg, err := workload.NewRegistry().Program(argv)
	if err != nil {
		log.Fatal("init program lookup failed", zap.Error(err))
	}
	if err := k.UserInit(initProg); err != nil {
		log.Fatal("userinit failed", zap.Error(err))
	}
	log.Info("booting", zap.String("boot_id", k.BootID()), zap.Strings("init", argv))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return k.Run(gctx) })

	// Snapshot archive
	var store *snapstore.Store
	if cfg.RedisAddress != "" {
		rdb := snapstore.NewClient(gctx, base, cfg.RedisAddress, 0)
		defer rdb.Close()

		store, err = snapstore.New(base, rdb, k.BootID(), cfg.SnapshotKeep)
		if err != nil {
			log.Fatal("snapshot store creation failed", zap.Error(err))
		}
		g.Go(func() error { return store.Record(gctx, k, cfg.SnapshotInterval) })
	}

	// Debug server
	if cfg.HTTPAddress != "" {
		if !cfg.Dev {
			gin.SetMode(gin.ReleaseMode)
		}
		opts := router.Options{Dev: cfg.Dev}
		if store != nil {
			opts.Snapshots = store
		}

		httpsrv := &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           router.New(base, k, opts),
			ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
			ReadTimeout:       10 * time.Second, // full request read (incl. body)
			WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
			IdleTimeout:       60 * time.Second, // keep-alive cap
			MaxHeaderBytes:    1 << 20,          // 1MB cap
		}

		g.Go(func() error {
			log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
			if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpsrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("kernel stopped", zap.Error(err))
	}
	log.Info("kernel stopped")
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("pdxkernel %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// helpers
func buildLogger(debug bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if debug {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}

// loadConfig reads path, falling back to the defaults when the file does
// not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
