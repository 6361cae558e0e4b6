package sale

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

type Stage string

const (
	StageSubmitting Stage = "submitting"
	StagePreparing  Stage = "preparing"
	StageProcessing Stage = "processing"
	StageSent       Stage = "sent"
	StageConfirmed  Stage = "confirmed"
	StageFailed     Stage = "failed"
)

// Status lines shown while a mint or sell progresses.
const (
	MsgSubmitting       = "Submitting..."
	MsgProcessing       = "Processing..."
	MsgMintSuccessful   = "Minting successful!"
	MsgMintConfirmed    = "Transaction confirmed, tokens minted!"
	MsgMintFailedPrefix = "Minting failed: "

	MsgPreparing           = "Preparing transaction..."
	MsgPrepareFailedPrefix = "Transaction preparation failed: "
	MsgSellSuccessful      = "Sell successful!"
	MsgSellConfirmed       = "Transaction confirmed, tokens sold!"
	MsgSellFailedPrefix    = "Sell failed: "

	MsgBalanceUnavailable = "Unable to get your token balance, please ensure your wallet is connected"
	MsgUnknownError       = "Unknown error"
	MsgCheckAmount        = "Please check amount"
)

var (
	ErrReverted  = errors.New("transaction reverted")
	ErrNoHistory = errors.New("purchase history is not enabled")
)

// Status is one progress update.
type Status struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// ProgressFunc receives status updates. It may be nil.
type ProgressFunc func(Status)

func (f ProgressFunc) emit(stage Stage, msg, txHash string) {
	if f != nil {
		f(Status{Stage: stage, Message: msg, TxHash: txHash})
	}
}

// StatusError carries the user-facing status line for a failed operation.
type StatusError struct {
	Status string
	Err    error
}

func (e *StatusError) Error() string { return e.Status }

func (e *StatusError) Unwrap() error { return e.Err }

// sentence capitalizes the first letter of an error message for display.
func sentence(s string) string {
	if s == "" {
		return MsgUnknownError
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
