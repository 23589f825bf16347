package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/hashicorp/go-hclog"

	"github.com/xdbsoft/astradoc/server"
)

var configPath = flag.String("config", "", "path to the configuration file (yaml, toml or json)")
var listenAddr = flag.String("addr", ":8082", "address and port to listen on")

func main() {

	flag.Parse()

	var paths []string
	if len(*configPath) > 0 {
		paths = append(paths, *configPath)
	}

	cfg, err := server.LoadConfig(paths...)
	if err != nil {
		panic(err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "astradoc_server",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})
	logger.Info("configuration loaded", "postgresql", len(cfg.DBConnStr) > 0, "auth", len(cfg.ApplicationToken) > 0, "pageSize", cfg.DefaultPageSize)

	h, err := server.Server(cfg, logger)
	if err != nil {
		logger.Error("unable to start server", "error", err)
		os.Exit(1)
	}

	h = handlers.CombinedLoggingHandler(os.Stdout, h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(logger.StandardLogger(nil)))(h)

	s := &http.Server{
		Addr:           *listenAddr,
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	logger.Info("listening", "addr", *listenAddr)
	if err := s.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
