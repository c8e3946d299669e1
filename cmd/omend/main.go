package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"omenchain/config"
	"omenchain/core"
	gatewayconfig "omenchain/gateway/config"
	"omenchain/gateway/routes"
	"omenchain/native/market"
	"omenchain/observability/logging"
	"omenchain/rpc"
	"omenchain/storage"
)

const rpcTokenEnv = "OMEN_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./omen.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("OMEN_ENV"))
	logger := logging.Setup("omend", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	genesis, err := buildGenesis(cfg)
	if err != nil {
		logger.Error("invalid genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}
	node, err := core.NewNode(db, genesis)
	if err != nil {
		logger.Error("failed to initialise node", slog.Any("error", err))
		os.Exit(1)
	}
	node.SetPaused(cfg.Paused())
	logger.Info("node ready", "admin", cfg.AdminAddress, "dataDir", cfg.DataDir)

	token := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if token == "" {
		token = strings.TrimSpace(cfg.RPCToken)
	}
	rpcServer := rpc.NewServer(node, rpc.Config{AuthToken: token})

	errCh := make(chan error, 3)
	go func() {
		errCh <- rpcServer.Start(cfg.RPCAddress)
	}()

	gwCfg := gatewayconfig.Default()
	if strings.TrimSpace(cfg.GatewayConfig) != "" {
		gwCfg, err = gatewayconfig.Load(cfg.GatewayConfig)
		if err != nil {
			logger.Error("failed to load gateway config", slog.Any("error", err))
			os.Exit(1)
		}
	}
	gwCfg.ListenAddress = cfg.GatewayAddress
	gwCfg.Environment = env
	go func() {
		logger.Info("starting gateway", "addr", gwCfg.ListenAddress)
		server := &http.Server{
			Addr:         gwCfg.ListenAddress,
			Handler:      routes.New(node, gwCfg),
			ReadTimeout:  gwCfg.ReadTimeout,
			WriteTimeout: gwCfg.WriteTimeout,
			IdleTimeout:  gwCfg.IdleTimeout,
		}
		errCh <- server.ListenAndServe()
	}()

	go func() {
		logger.Info("starting metrics endpoint", "addr", cfg.MetricsAddress)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		errCh <- server.ListenAndServe()
	}()

	err = <-errCh
	logger.Error("server exited", slog.Any("error", err))
	os.Exit(1)
}

func buildGenesis(cfg *config.Config) (core.Genesis, error) {
	genesis := core.Genesis{
		FeeRateBps:     cfg.FeeRateBps,
		FeeDenominator: cfg.FeeDenominator,
		EventBacklog:   cfg.EventBacklog,
	}
	if strings.TrimSpace(cfg.AdminAddress) == "" {
		return genesis, fmt.Errorf("AdminAddress required")
	}
	admin, err := cfg.Admin()
	if err != nil {
		return genesis, err
	}
	genesis.Admin = admin

	seed := cfg.Market
	if strings.TrimSpace(seed.Title) == "" {
		return genesis, fmt.Errorf("a [Market] seed is required")
	}
	yes, ok := new(big.Int).SetString(strings.TrimSpace(seed.YesLiquidity), 10)
	if !ok {
		return genesis, fmt.Errorf("invalid Market.YesLiquidity %q", seed.YesLiquidity)
	}
	no, ok := new(big.Int).SetString(strings.TrimSpace(seed.NoLiquidity), 10)
	if !ok {
		return genesis, fmt.Errorf("invalid Market.NoLiquidity %q", seed.NoLiquidity)
	}
	genesis.Market = &market.Market{
		Title:        seed.Title,
		YesLiquidity: yes,
		NoLiquidity:  no,
		StartTime:    seed.StartTime,
		EndTime:      seed.EndTime,
	}
	return genesis, nil
}
