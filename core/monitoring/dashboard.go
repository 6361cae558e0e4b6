// Package monitoring serves the sale dashboard over HTTP and websocket and
// raises alerts as the sale moves through its milestones.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
	"github.com/Shivam-Patel-G/qatar-sale/core/registry"
	"github.com/Shivam-Patel-G/qatar-sale/core/sale"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
	"github.com/Shivam-Patel-G/qatar-sale/core/wallet"
)

// Source is the read side of the sale service.
type Source interface {
	Overview(ctx context.Context) (*sale.Overview, error)
	Holdings(ctx context.Context, account common.Address) (*sale.Holdings, error)
	QuoteMint(ctx context.Context, amount *big.Int) (*sale.MintQuote, error)
	QuoteSell(ctx context.Context, amount *big.Int) (*sale.SellQuote, error)
	Invest(ctx context.Context, amount *big.Int, milestones uint64) (*pricing.Projection, error)
	History(ctx context.Context, account common.Address, limit int) (*sale.PurchaseHistory, error)
	Simulate(ctx context.Context, cfg pricing.SimulationConfig) (*pricing.SimulationReport, error)
}

// HolderSource lists known holders. *registry.HolderRegistry satisfies it.
type HolderSource interface {
	TopHolders(n int) []*registry.HolderInfo
	GetStats() map[string]interface{}
}

type Config struct {
	Addr               string
	RefreshInterval    time.Duration
	SupplyAlertPercent int64
	// ReadTimeout bounds each background overview read.
	ReadTimeout time.Duration
}

// Dashboard polls the sale, evaluates alerts and pushes each snapshot to
// websocket subscribers.
type Dashboard struct {
	source  Source
	holders HolderSource
	alerts  *AlertManager
	logger  *logrus.Logger

	router   *mux.Router
	server   *http.Server
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool

	mu          sync.RWMutex
	latest      *sale.Overview
	metrics     SaleMetrics
	lastError   string
	startedAt   time.Time
	isRunning   bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	refresh     time.Duration
	readTimeout time.Duration
}

// NewDashboard wires routes. holders may be nil.
func NewDashboard(source Source, holders HolderSource, cfg Config, logger *logrus.Logger) *Dashboard {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}

	d := &Dashboard{
		source:      source,
		holders:     holders,
		alerts:      NewAlertManager(cfg.SupplyAlertPercent, logger),
		logger:      logger,
		clients:     make(map[*websocket.Conn]bool),
		startedAt:   time.Now(),
		refresh:     cfg.RefreshInterval,
		readTimeout: cfg.ReadTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/overview", d.handleOverview).Methods("GET")
	r.HandleFunc("/api/holdings/{address}", d.handleHoldings).Methods("GET")
	r.HandleFunc("/api/quote/mint", d.handleQuoteMint).Methods("GET")
	r.HandleFunc("/api/quote/sell", d.handleQuoteSell).Methods("GET")
	r.HandleFunc("/api/invest", d.handleInvest).Methods("GET")
	r.HandleFunc("/api/history/{address}", d.handleHistory).Methods("GET")
	r.HandleFunc("/api/simulate", d.handleSimulate).Methods("GET")
	r.HandleFunc("/api/holders", d.handleHolders).Methods("GET")
	r.HandleFunc("/api/alerts", d.handleAlerts).Methods("GET")
	r.HandleFunc("/api/health", d.handleHealth).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket)
	d.router = r

	d.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return d
}

func (d *Dashboard) Handler() http.Handler { return d.router }

func (d *Dashboard) Alerts() *AlertManager { return d.alerts }

// Start runs the refresh loop and the HTTP server until Stop or ctx ends.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.startedAt = time.Now()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.refreshLoop(ctx)
	}()

	go func() {
		d.logger.Infof("🖥️ Sale dashboard starting on %s", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Errorf("❌ Dashboard server error: %v", err)
		}
	}()

	d.isRunning = true
	return nil
}

func (d *Dashboard) Stop() error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return fmt.Errorf("dashboard is not running")
	}
	d.isRunning = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()

	d.clientsMu.Lock()
	for c := range d.clients {
		c.Close()
		delete(d.clients, c)
	}
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop dashboard server: %w", err)
	}
	d.logger.Info("🛑 Sale dashboard stopped")
	return nil
}

func (d *Dashboard) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()

	d.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Refresh(ctx)
		}
	}
}

// Refresh reads one overview, evaluates alerts and broadcasts the result.
func (d *Dashboard) Refresh(ctx context.Context) {
	readCtx, cancel := context.WithTimeout(ctx, d.readTimeout)
	ov, err := d.source.Overview(readCtx)
	cancel()

	d.mu.Lock()
	if err != nil {
		d.metrics.RPCFailures++
		d.lastError = err.Error()
		d.logger.Warnf("⚠️ Overview refresh failed (%d in a row): %v", d.metrics.RPCFailures, err)
	} else {
		d.latest = ov
		d.metrics = MetricsFromOverview(ov)
		d.lastError = ""
	}
	metrics := d.metrics
	d.mu.Unlock()

	fired := d.alerts.Evaluate(metrics)
	for _, a := range fired {
		d.broadcast(map[string]interface{}{"type": "alert", "data": a})
	}
	if err == nil {
		d.broadcast(map[string]interface{}{"type": "overview", "data": ov})
	}
}

// Status is healthy, degraded after a failed read, critical once the RPC
// alert threshold is reached.
func (d *Dashboard) Status() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.statusLocked()
}

func (d *Dashboard) statusLocked() string {
	switch {
	case d.metrics.RPCFailures >= 3:
		return "critical"
	case d.metrics.RPCFailures > 0:
		return "degraded"
	case d.metrics.Known && d.metrics.RemainingSupplyPercent <= 0:
		return "sold_out"
	}
	return "healthy"
}

func (d *Dashboard) broadcast(msg interface{}) {
	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	if len(d.clients) == 0 {
		return
	}

	var disconnected []*websocket.Conn
	for c := range d.clients {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteJSON(msg); err != nil {
			d.logger.Debugf("Dropping websocket client: %v", err)
			disconnected = append(disconnected, c)
		}
	}
	for _, c := range disconnected {
		delete(d.clients, c)
		c.Close()
	}
}

func (d *Dashboard) clientCount() int {
	d.clientsMu.RLock()
	defer d.clientsMu.RUnlock()
	return len(d.clients)
}

// HTTP handlers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// writeServiceError maps validation failures to 400 and chain failures to
// 502.
func writeServiceError(w http.ResponseWriter, err error) {
	var se *sale.StatusError
	switch {
	case errors.As(err, &se):
		writeError(w, http.StatusBadRequest, se.Status)
	case errors.Is(err, wallet.ErrNoWallet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sale.ErrNoHistory):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, pricing.ErrInvalidStep), errors.Is(err, pricing.ErrZeroPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func addressParam(r *http.Request) (common.Address, bool) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func amountParam(r *http.Request, name string) (*big.Int, error) {
	return token.ParseEther(r.URL.Query().Get(name))
}

func (d *Dashboard) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := d.source.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (d *Dashboard) handleHoldings(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	h, err := d.source.Holdings(r.Context(), addr)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (d *Dashboard) handleQuoteMint(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please enter a valid amount")
		return
	}
	q, err := d.source.QuoteMint(r.Context(), amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (d *Dashboard) handleQuoteSell(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please enter a valid amount")
		return
	}
	q, err := d.source.QuoteSell(r.Context(), amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (d *Dashboard) handleInvest(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please enter a valid amount")
		return
	}
	milestones := uint64(10)
	if raw := r.URL.Query().Get("milestones"); raw != "" {
		m, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid milestones")
			return
		}
		milestones = m
	}
	p, err := d.source.Invest(r.Context(), amount, milestones)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (d *Dashboard) handleHistory(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	h, err := d.source.History(r.Context(), addr, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleSimulate defaults to 1000-token steps; single-token replays are
// left to the CLI.
func (d *Dashboard) handleSimulate(w http.ResponseWriter, r *http.Request) {
	step := new(big.Int).Mul(big.NewInt(1000), token.One)
	if raw := r.URL.Query().Get("step"); raw != "" {
		s, err := token.ParseEther(raw)
		if err != nil || s.Sign() <= 0 {
			writeError(w, http.StatusBadRequest, pricing.ErrInvalidStep.Error())
			return
		}
		step = s
	}
	supply := pricing.DefaultTotalSupply
	d.mu.RLock()
	if d.latest != nil && d.latest.TotalSupply != nil {
		supply = d.latest.TotalSupply
	}
	d.mu.RUnlock()
	if err := pricing.ValidateStep(supply, step); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := d.source.Simulate(r.Context(), pricing.SimulationConfig{Step: step})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (d *Dashboard) handleHolders(w http.ResponseWriter, r *http.Request) {
	if d.holders == nil {
		writeError(w, http.StatusNotImplemented, "holder registry is not enabled")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"holders": d.holders.TopHolders(limit),
		"stats":   d.holders.GetStats(),
	})
}

func (d *Dashboard) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":  d.alerts.ActiveAlerts(),
		"history": d.alerts.History(50),
	})
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	status := d.statusLocked()
	health := map[string]interface{}{
		"status":       status,
		"healthy":      status == "healthy" || status == "sold_out",
		"timestamp":    time.Now(),
		"uptime":       time.Since(d.startedAt).String(),
		"rpc_failures": d.metrics.RPCFailures,
		"last_update":  d.metrics.LastUpdated,
	}
	if d.lastError != "" {
		health["last_error"] = d.lastError
	}
	d.mu.RUnlock()
	health["ws_clients"] = d.clientCount()

	code := http.StatusOK
	if status == "critical" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// handleWebSocket greets with the latest snapshot and then keeps the
// client subscribed until it disconnects.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Errorf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	d.mu.RLock()
	latest := d.latest
	d.mu.RUnlock()

	d.clientsMu.Lock()
	welcome := map[string]interface{}{
		"type":      "welcome",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if latest != nil {
		welcome["data"] = latest
	}
	if err := conn.WriteJSON(welcome); err != nil {
		d.clientsMu.Unlock()
		conn.Close()
		return
	}
	d.clients[conn] = true
	d.clientsMu.Unlock()
	d.logger.Debugf("🔗 Dashboard client connected (total: %d)", d.clientCount())

	defer func() {
		d.clientsMu.Lock()
		delete(d.clients, conn)
		d.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Debugf("WebSocket closed: %v", err)
			}
			return
		}
	}
}
