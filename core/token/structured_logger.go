package token

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different log levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarning:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// TransactionLog is one JSON line of the sale transaction journal.
// Amounts are wei strings.
type TransactionLog struct {
	TransactionID string    `json:"transaction_id"`
	TxHash        string    `json:"tx_hash,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	TokenSymbol   string    `json:"token_symbol"`

	Operation   string `json:"operation"` // mint, sell
	Account     string `json:"account"`
	AmountIn    string `json:"amount_in"`
	ExpectedOut string `json:"expected_out,omitempty"`
	Price       string `json:"price,omitempty"`

	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`

	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message,omitempty"`
	LogLevel     LogLevel `json:"log_level"`

	ProcessingTimeMs int64                  `json:"processing_time_ms,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// TransactionLogger journals mint and sell attempts to a daily JSONL file.
type TransactionLogger struct {
	file    *os.File
	syncer  *zapcore.BufferedWriteSyncer
	zl      *zap.Logger
	console *logrus.Logger
	logDir  string

	mu       sync.Mutex
	enabled  bool
	byStatus map[string]int
}

// NewTransactionLogger opens (or appends to) today's journal in logDir.
// console may be nil.
func NewTransactionLogger(logDir string, level LogLevel, console *logrus.Logger) (*TransactionLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("sale_transactions_%s.jsonl", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	syncer := &zapcore.BufferedWriteSyncer{
		WS:            zapcore.AddSync(file),
		Size:          64 * 1024,
		FlushInterval: 5 * time.Second,
	}
	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "log_level",
		MessageKey:     "operation",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})

	return &TransactionLogger{
		file:     file,
		syncer:   syncer,
		zl:       zap.New(zapcore.NewCore(encoder, syncer, level.zapLevel())),
		console:  console,
		logDir:   logDir,
		enabled:  true,
		byStatus: make(map[string]int),
	}, nil
}

// Log writes a journal entry. The entry's Timestamp is used when set.
func (tl *TransactionLogger) Log(entry TransactionLog) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if !tl.enabled {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.TransactionID == "" {
		entry.TransactionID = fmt.Sprintf("%s_%d", entry.Operation, entry.Timestamp.UnixNano())
	}
	if entry.LogLevel == "" {
		entry.LogLevel = levelForStatus(entry.Status)
	}

	fields := []zap.Field{
		zap.String("transaction_id", entry.TransactionID),
		zap.String("token_symbol", entry.TokenSymbol),
		zap.String("account", entry.Account),
		zap.String("amount_in", entry.AmountIn),
		zap.String("status", entry.Status),
	}
	if entry.TxHash != "" {
		fields = append(fields, zap.String("tx_hash", entry.TxHash))
	}
	if entry.ExpectedOut != "" {
		fields = append(fields, zap.String("expected_out", entry.ExpectedOut))
	}
	if entry.Price != "" {
		fields = append(fields, zap.String("price", entry.Price))
	}
	if entry.BlockNumber != 0 {
		fields = append(fields, zap.Uint64("block_number", entry.BlockNumber))
	}
	if entry.GasUsed != 0 {
		fields = append(fields, zap.Uint64("gas_used", entry.GasUsed))
	}
	if entry.ErrorMessage != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMessage))
	}
	if entry.ProcessingTimeMs != 0 {
		fields = append(fields, zap.Int64("processing_time_ms", entry.ProcessingTimeMs))
	}
	if len(entry.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", entry.Metadata))
	}

	if ce := tl.zl.Check(entry.LogLevel.zapLevel(), entry.Operation); ce != nil {
		ce.Time = entry.Timestamp
		ce.Write(fields...)
	}
	tl.byStatus[entry.Status]++
	tl.logToConsole(entry)
}

func levelForStatus(status string) LogLevel {
	switch status {
	case StatusFailed:
		return LogLevelError
	case StatusPending:
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func (tl *TransactionLogger) logToConsole(entry TransactionLog) {
	if tl.console == nil {
		return
	}
	opEmoji := map[string]string{
		"mint": "🪙",
		"sell": "💸",
	}[entry.Operation]
	if opEmoji == "" {
		opEmoji = "🔄"
	}

	hash := entry.TxHash
	if len(hash) > 10 {
		hash = hash[:10] + "..."
	}
	fields := logrus.Fields{
		"account": ShortAddress(entry.Account),
		"amount":  entry.AmountIn,
		"status":  entry.Status,
	}
	if hash != "" {
		fields["tx"] = hash
	}
	if entry.Status == StatusFailed {
		tl.console.WithFields(fields).Warnf("%s %s failed: %s", opEmoji, entry.Operation, entry.ErrorMessage)
		return
	}
	tl.console.WithFields(fields).Debugf("%s %s %s", opEmoji, entry.Operation, entry.Status)
}

// Flush writes buffered entries to disk.
func (tl *TransactionLogger) Flush() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.syncer.Sync()
}

// Close flushes remaining entries and closes the journal file.
func (tl *TransactionLogger) Close() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.enabled = false
	if err := tl.syncer.Stop(); err != nil {
		return err
	}
	return tl.file.Close()
}

// Enable enables or disables journaling
func (tl *TransactionLogger) Enable(enabled bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.enabled = enabled
}

// Stats returns counters for journaled entries.
func (tl *TransactionLogger) Stats() map[string]interface{} {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	byStatus := make(map[string]int, len(tl.byStatus))
	total := 0
	for k, v := range tl.byStatus {
		byStatus[k] = v
		total += v
	}
	return map[string]interface{}{
		"enabled":       tl.enabled,
		"log_directory": tl.logDir,
		"total_entries": total,
		"by_status":     byStatus,
	}
}
