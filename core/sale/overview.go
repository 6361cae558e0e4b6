package sale

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Shivam-Patel-G/qatar-sale/core/cache"
	"github.com/Shivam-Patel-G/qatar-sale/core/contract"
	"github.com/Shivam-Patel-G/qatar-sale/core/pricing"
	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

// Overview is the token info and economics snapshot.
type Overview struct {
	Symbol   string `json:"symbol"`
	Contract string `json:"contract"`

	CurrentPrice     *big.Int `json:"current_price"`
	InitialPrice     *big.Int `json:"initial_price"`
	TotalMinted      *big.Int `json:"total_minted"`
	BurnedTokens     *big.Int `json:"burned_tokens"`
	RemainingSupply  *big.Int `json:"remaining_supply"`
	TotalBNBReceived *big.Int `json:"total_bnb_received"`
	TotalSupply      *big.Int `json:"total_supply"`
	Milestone        *big.Int `json:"milestone"`

	Milestones      uint64          `json:"milestones"`
	ProgressPercent int64           `json:"progress_percent"`
	BNBNeeded       *big.Int        `json:"bnb_needed"`
	NextPrice       *big.Int        `json:"next_price"`
	BurnedPercent   decimal.Decimal `json:"burned_percent"`
	AvailableToMint *big.Int        `json:"available_to_mint"`
	Growth          decimal.Decimal `json:"growth"`
	Holders         int             `json:"holders"`

	UpdatedAt time.Time `json:"updated_at"`
	Cached    bool      `json:"cached"`
}

// Holdings is an account's position valued at the current price.
type Holdings struct {
	Address      string          `json:"address"`
	ShortAddress string          `json:"short_address"`
	Balance      *big.Int        `json:"balance"`
	Price        *big.Int        `json:"price"`
	ValueBNB     *big.Int        `json:"value_bnb"`
	ValueUSD     decimal.Decimal `json:"value_usd"`
	USDRate      decimal.Decimal `json:"usd_rate"`
	RateSource   string          `json:"rate_source"`
}

// stats reads the contract getters, through the cache when configured.
func (s *Service) stats(ctx context.Context, forValidation bool) (*contract.Stats, bool, error) {
	if s.cache != nil {
		var st contract.Stats
		if s.cache.Get(cache.KeyStats, forValidation, &st) && st.CurrentPrice != nil {
			return &st, true, nil
		}
	}
	st, err := s.contract.Stats(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(cache.KeyStats, st, "chain"); err != nil {
			s.logger.Warnf("⚠️ Failed to cache contract stats: %v", err)
		}
	}
	return st, false, nil
}

// Curve returns the price curve with on-chain constants applied when the
// contract exposes them.
func (s *Service) Curve(ctx context.Context) (pricing.Curve, error) {
	st, _, err := s.stats(ctx, false)
	if err != nil {
		return pricing.Curve{}, err
	}
	return s.curve.WithOnChain(st.InitialPrice, st.BNBMilestone), nil
}

// CurrentPrice returns the contract price for a transaction decision.
func (s *Service) CurrentPrice(ctx context.Context) (*big.Int, error) {
	st, _, err := s.stats(ctx, true)
	if err != nil {
		return nil, err
	}
	return st.CurrentPrice, nil
}

// Overview assembles the dashboard snapshot.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	st, cached, err := s.stats(ctx, false)
	if err != nil {
		return nil, err
	}
	curve := s.curve.WithOnChain(st.InitialPrice, st.BNBMilestone)
	progress, err := curve.Progress(st.TotalBNBReceived)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Symbol:           s.symbol,
		Contract:         s.contract.Address().Hex(),
		CurrentPrice:     st.CurrentPrice,
		InitialPrice:     curve.InitialPrice,
		TotalMinted:      st.TotalMinted,
		BurnedTokens:     st.BurnedTokens,
		RemainingSupply:  st.RemainingSupply,
		TotalBNBReceived: st.TotalBNBReceived,
		TotalSupply:      curve.TotalSupply,
		Milestone:        curve.Milestone,
		Milestones:       progress.Milestones,
		ProgressPercent:  progress.Percent,
		BNBNeeded:        progress.Needed,
		NextPrice:        progress.NextPrice,
		BurnedPercent:    pricing.BurnedPercent(st.BurnedTokens, st.TotalMinted),
		AvailableToMint:  curve.AvailableToMint(st.TotalMinted),
		Growth:           pricing.Growth(st.CurrentPrice, curve.InitialPrice),
		UpdatedAt:        time.Now().UTC(),
		Cached:           cached,
	}
	if s.holders != nil {
		ov.Holders = s.holders.HolderCount()
	}
	return ov, nil
}

func (s *Service) balance(ctx context.Context, account common.Address, forValidation bool) (*big.Int, error) {
	if s.cache != nil {
		if b, ok := s.cache.GetBalance(account.Hex(), forValidation); ok {
			return b, nil
		}
	}
	b, err := s.contract.BalanceOf(ctx, account)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetBalance(account.Hex(), b, "chain"); err != nil {
			s.logger.Warnf("⚠️ Failed to cache balance: %v", err)
		}
	}
	return b, nil
}

// Holdings values account's balance in BNB and USD. A zero account means
// the connected wallet.
func (s *Service) Holdings(ctx context.Context, account common.Address) (*Holdings, error) {
	if account == (common.Address{}) {
		a, err := s.Account()
		if err != nil {
			return nil, err
		}
		account = a
	}
	bal, err := s.balance(ctx, account, false)
	if err != nil {
		return nil, err
	}
	st, _, err := s.stats(ctx, false)
	if err != nil {
		return nil, err
	}

	value := pricing.HoldingValue(bal, st.CurrentPrice)
	usd, quote := s.feed.ToUSD(ctx, value)
	return &Holdings{
		Address:      account.Hex(),
		ShortAddress: token.ShortAddress(account.Hex()),
		Balance:      bal,
		Price:        st.CurrentPrice,
		ValueBNB:     value,
		ValueUSD:     usd,
		USDRate:      quote.Rate,
		RateSource:   quote.Source,
	}, nil
}
