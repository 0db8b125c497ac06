package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/halcyonlabs/go-privmeter/pkg/config"
	"github.com/halcyonlabs/go-privmeter/pkg/egress"
	"github.com/halcyonlabs/go-privmeter/pkg/engine"
	"github.com/halcyonlabs/go-privmeter/pkg/models"
	"github.com/halcyonlabs/go-privmeter/pkg/providers"
	"github.com/halcyonlabs/go-privmeter/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the privacy scoring REST API",
	RunE:  runServe,
}

// server bundles everything the HTTP handlers need.
type server struct {
	logger   *zap.Logger
	agg      *engine.Aggregator
	vpn      *providers.VPNManager
	location *providers.LocationManager
	network  *providers.NetworkMonitor
	caller   *providers.CallerGuard
	checker  *egress.Checker // nil when the exit check is disabled
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if !verbose {
		if lvl, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
			logLevel.SetLevel(lvl)
		}
	}

	store, closeStore, err := openHistoryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Storage.Keep > 0 {
		if err := store.Prune(cfg.Storage.Keep); err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
		logger.Info("history pruned", zap.Int("keep", cfg.Storage.Keep))
	}

	vpn := providers.NewVPNManager()
	location := providers.NewLocationManager()
	network := providers.NewNetworkMonitor()
	caller := providers.NewCallerGuard()

	var checker *egress.Checker
	if cfg.VPN.ExitCheck.CityDB != "" {
		checker, err = egress.NewChecker(cfg.VPN.ExitCheck.CityDB, cfg.VPN.ExitCheck.ASNDB)
		if err != nil {
			// The scorer runs fine without exit verification.
			logger.Warn("exit check disabled", zap.Error(err))
			checker = nil
		} else {
			vpn.AttachExitChecker(checker)
			defer checker.Close()
			logger.Info("exit check enabled", zap.String("city_db", cfg.VPN.ExitCheck.CityDB))
		}
	}

	set := engine.ProviderSet{VPN: vpn, Location: location, Network: network, Caller: caller}
	agg, err := engine.NewWithWeights(set, store, cfg.Scoring.Weights)
	if err != nil {
		return err
	}
	if err := agg.SetTrendWindow(cfg.Scoring.TrendWindow); err != nil {
		return err
	}

	srv := &server{
		logger:   logger,
		agg:      agg,
		vpn:      vpn,
		location: location,
		network:  network,
		caller:   caller,
		checker:  checker,
	}

	if interval := cfg.GetSampleInterval(); interval > 0 {
		sampler, err := engine.NewSampler(agg, interval)
		if err != nil {
			return err
		}
		sampler.OnRecord = func(r *models.ScoreRecord) {
			logger.Debug("sampled privacy score", zap.Int("overall", r.Overall), zap.String("grade", r.Grade()))
		}
		sampler.OnError = func(err error) {
			logger.Error("background sample failed", zap.Error(err))
		}
		sampler.Start()
		defer sampler.Stop()
		logger.Info("background sampling enabled", zap.Duration("interval", interval))
	}

	// Weights and trend window apply live on config changes; everything
	// else needs a restart.
	watcher, err := config.NewWatcher(cfgPath,
		func(next *config.Config) {
			if err := agg.SetWeights(next.Scoring.Weights); err != nil {
				logger.Warn("reloaded weights rejected", zap.Error(err))
				return
			}
			if err := agg.SetTrendWindow(next.Scoring.TrendWindow); err != nil {
				logger.Warn("reloaded trend window rejected", zap.Error(err))
				return
			}
			logger.Info("config reloaded",
				zap.Float64("weight_vpn", next.Scoring.Weights.VPN),
				zap.Float64("weight_location", next.Scoring.Weights.Location),
				zap.Float64("weight_network", next.Scoring.Weights.Network),
				zap.Float64("weight_caller", next.Scoring.Weights.Caller),
				zap.Int("trend_window", next.Scoring.TrendWindow))
		},
		func(err error) {
			logger.Warn("config reload failed", zap.Error(err))
		},
	)
	if err != nil {
		logger.Warn("config hot reload disabled", zap.Error(err))
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("configure trusted proxies: %w", err)
	}
	srv.routes(router)

	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("privmeter listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openHistoryStore builds the configured history backend and returns it
// with its cleanup function.
func openHistoryStore(cfg *config.Config) (storage.HistoryStore, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), func() {}, nil
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open history store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
}

func (s *server) routes(r *gin.Engine) {
	api := r.Group("/api/v1")

	privacy := api.Group("/privacy")
	privacy.POST("/score", s.handleScore)
	privacy.GET("/history", s.handleHistory)
	privacy.GET("/trend", s.handleTrend)
	privacy.GET("/status", s.handleStatus)

	vpn := api.Group("/vpn")
	vpn.POST("/connect", s.handleVPNConnect)
	vpn.POST("/disconnect", s.handleVPNDisconnect)
	vpn.POST("/killswitch", s.handleKillSwitch)
	vpn.POST("/verify-exit", s.handleVerifyExit)
	vpn.POST("/leak", s.handleLeak)
	vpn.DELETE("/leaks", s.handleClearLeaks)

	location := api.Group("/location")
	location.POST("/mode", s.handleLocationMode)

	network := api.Group("/network")
	network.POST("/firewall", s.handleFirewall)
	network.POST("/threat", s.handleThreat)

	caller := api.Group("/caller")
	caller.POST("/masking", s.handleMasking)
	caller.POST("/spam", s.handleSpam)
}

type connectRequest struct {
	ServerCountry string `json:"server_country" binding:"required"`
}

type enableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type blockedRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

type verifyExitRequest struct {
	PublicIP string `json:"public_ip" binding:"required"`
}

type leakRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Detail string `json:"detail"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *server) handleScore(c *gin.Context) {
	record, err := s.agg.Calculate()
	if err != nil {
		s.logger.Error("score calculation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist score record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record": record,
		"grade":  record.Grade(),
	})
}

func (s *server) handleHistory(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	records, err := s.agg.History(limit)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidLimit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("history read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"records": records,
	})
}

func (s *server) handleTrend(c *gin.Context) {
	report, err := s.agg.Trend()
	if err != nil {
		s.logger.Error("trend read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) handleStatus(c *gin.Context) {
	// Live sub-scores, computed without appending to the history.
	scores := make(map[models.Component]models.SubScore, 4)
	for _, p := range []providers.Provider{s.vpn, s.location, s.network, s.caller} {
		if sub, err := p.SubScore(); err == nil {
			scores[p.Component()] = sub
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"weights":      s.agg.Weights(),
		"trend_window": s.agg.TrendWindow(),
		"sub_scores":   scores,
		"vpn":          s.vpn.Status(),
		"location":     gin.H{"mode": s.location.Mode()},
		"network":      s.network.Stats(),
		"caller":       s.caller.Stats(),
	})
}

func (s *server) handleVPNConnect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "server_country is required"})
		return
	}

	s.vpn.Connect(req.ServerCountry)
	s.logger.Info("vpn connected", zap.String("exit_country", s.vpn.Status().ExitCountry))
	c.JSON(http.StatusOK, s.vpn.Status())
}

func (s *server) handleVPNDisconnect(c *gin.Context) {
	s.vpn.Disconnect()
	s.logger.Info("vpn disconnected")
	c.JSON(http.StatusOK, s.vpn.Status())
}

func (s *server) handleKillSwitch(c *gin.Context) {
	var req enableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	s.vpn.SetKillSwitch(*req.Enabled)
	c.JSON(http.StatusOK, s.vpn.Status())
}

func (s *server) handleVerifyExit(c *gin.Context) {
	var req verifyExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "public_ip is required"})
		return
	}
	if s.checker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "exit check is not configured"})
		return
	}

	leaked, err := s.vpn.VerifyExit(req.PublicIP)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if leaked {
		// Deliberately no IP in the log line.
		s.logger.Warn("exit country mismatch detected")
	}

	resp := gin.H{"leak_detected": leaked}
	if info, err := s.checker.LookupExit(req.PublicIP); err == nil {
		resp["exit"] = info
	}
	if asn, org, err := s.checker.ExitASN(req.PublicIP); err == nil {
		resp["asn"] = asn
		resp["organization"] = org
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleLeak(c *gin.Context) {
	var req leakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind is required"})
		return
	}

	s.vpn.RecordLeak(req.Kind, req.Detail)
	s.logger.Warn("leak reported", zap.String("kind", req.Kind))
	c.JSON(http.StatusOK, s.vpn.Status())
}

func (s *server) handleClearLeaks(c *gin.Context) {
	s.vpn.ClearLeaks()
	c.JSON(http.StatusOK, s.vpn.Status())
}

func (s *server) handleLocationMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode is required"})
		return
	}

	if err := s.location.SetMode(providers.LocationMode(req.Mode)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": s.location.Mode()})
}

func (s *server) handleFirewall(c *gin.Context) {
	var req enableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	s.network.SetFirewall(*req.Enabled)
	c.JSON(http.StatusOK, s.network.Stats())
}

func (s *server) handleThreat(c *gin.Context) {
	var req blockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blocked is required"})
		return
	}

	s.network.RecordThreat(*req.Blocked)
	c.JSON(http.StatusOK, s.network.Stats())
}

func (s *server) handleMasking(c *gin.Context) {
	var req enableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	s.caller.SetMasking(*req.Enabled)
	c.JSON(http.StatusOK, s.caller.Stats())
}

func (s *server) handleSpam(c *gin.Context) {
	var req blockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blocked is required"})
		return
	}

	s.caller.RecordSpamCall(*req.Blocked)
	c.JSON(http.StatusOK, s.caller.Stats())
}
