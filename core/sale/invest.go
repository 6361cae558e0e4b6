package sale

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Shivam-Patel-G/qatar-sale/core/history"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

// Invest projects the value of buying amount BNB now once the price has
// reached the given milestone.
func (s *Service) Invest(ctx context.Context, amount *big.Int, milestones uint64) (*pricing.Projection, error) {
	curve, err := s.Curve(ctx)
	if err != nil {
		return nil, err
	}
	price, err := s.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return curve.Project(amount, price, milestones)
}

// PurchaseHistory is an account's recorded mints, newest first.
type PurchaseHistory struct {
	Purchases []history.Purchase `json:"purchases"`
	Summary   *history.Summary   `json:"summary"`
}

// History returns the recorded mints of account, the connected wallet
// when account is zero.
func (s *Service) History(ctx context.Context, account common.Address, limit int) (*PurchaseHistory, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	if account == (common.Address{}) {
		a, err := s.Account()
		if err != nil {
			return nil, err
		}
		account = a
	}
	rows, err := s.history.History(account.Hex(), limit, token.EventMint)
	if err != nil {
		return nil, err
	}
	summary, err := s.history.Summarize(account.Hex())
	if err != nil {
		return nil, err
	}
	return &PurchaseHistory{Purchases: rows, Summary: summary}, nil
}

// Simulate replays the whole sale on the current curve.
func (s *Service) Simulate(ctx context.Context, cfg pricing.SimulationConfig) (*pricing.SimulationReport, error) {
	curve, err := s.Curve(ctx)
	if err != nil {
		curve = s.curve
		s.logger.Warnf("⚠️ Simulating with default constants: %v", err)
	}
	return curve.Simulate(ctx, cfg)
}
