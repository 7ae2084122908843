package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"quietpost/pkg/api"
	"quietpost/pkg/banner"
	"quietpost/pkg/config"
	"quietpost/pkg/crypt"
	"quietpost/pkg/keys"
	"quietpost/pkg/logger"
	"quietpost/pkg/notify"
	"quietpost/pkg/shutdown"
	"quietpost/pkg/store"
	"quietpost/pkg/token"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Explicit flags win over config/env.
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	if setFlags["db"] {
		cfg.Storage.DBPath = dbVal
	}

	logger.Init(cfg.Logging.Level)

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	// Derive the service key once; codec and cipher receive it
	// explicitly and the secret itself is not referenced again.
	key := keys.Derive(cfg.Security.Secret)
	codec := token.NewCodec(key)
	cipher, err := crypt.New(key)
	if err != nil {
		log.Fatalf("failed to build cipher: %v", err)
	}

	blobs, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open storage backend %q: %v", cfg.Storage.Backend, err)
	}
	defer func() { _ = blobs.Close() }()

	msgLog := store.NewLog(blobs, cfg.Storage.BlobName)
	hook := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout.Duration())
	portal := api.NewPortal(cfg, codec, cipher, msgLog, hook)

	verStr := version
	if commit != "none" {
		verStr += " (" + commit + ")"
	}
	source := "defaults"
	if cfgPath != "" {
		source = cfgPath
	}
	banner.Print(cfg, addr, source, verStr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(portal),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Error("shutdown_failed", "error", err)
		}
	}()

	cert := cfg.Server.TLS.CertFile
	certKey := cfg.Server.TLS.KeyFile
	var errServe error
	if cert != "" && certKey != "" {
		errServe = srv.ListenAndServeTLS(cert, certKey)
	} else {
		errServe = srv.ListenAndServe()
	}
	if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		log.Fatal(errServe)
	}
	logger.Info("server_stopped")
}
