// Package wallet simulates a token wallet backed by the record store.
// There is no chain behind it: balances and transactions only live in
// the store.
package wallet

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"campusrecords/internal/apperr"
	"campusrecords/internal/metrics"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

// MockSender is the counterparty of simulated receives.
const MockSender = "0xMockSender"

const (
	defaultSeed         = 100
	defaultSendDelay    = time.Second
	defaultRefreshDelay = 800 * time.Millisecond
	receiveAmount       = 10
	refreshSpread       = 5
)

// Options tunes the simulation. Zero values use the defaults; a negative
// delay disables it.
type Options struct {
	Seed         float64
	SendDelay    time.Duration
	RefreshDelay time.Duration
}

// Service owns the wallet and transaction keys.
type Service struct {
	store *store.Store
	opts  Options
	mu    sync.Mutex
	now   func() time.Time
	intn  func(n int) int
	log   *slog.Logger
}

// NewService creates a wallet service.
func NewService(st *store.Store, opts Options) *Service {
	if opts.Seed <= 0 {
		opts.Seed = defaultSeed
	}
	if opts.SendDelay == 0 {
		opts.SendDelay = defaultSendDelay
	}
	if opts.RefreshDelay == 0 {
		opts.RefreshDelay = defaultRefreshDelay
	}
	return &Service{
		store: st,
		opts:  opts,
		now:   time.Now,
		intn:  rand.IntN,
		log:   slog.Default().With("component", "wallet"),
	}
}

// Balance returns the current balance, seeding the wallet on first use.
func (s *Service) Balance(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, err := s.balance(ctx)
	if err != nil {
		return 0, err
	}
	return bal.InexactFloat64(), nil
}

// Transactions returns the log, most recent first.
func (s *Service) Transactions(ctx context.Context) ([]model.Transaction, error) {
	var txs []model.Transaction
	if _, err := s.store.GetJSON(ctx, store.KeyTransactions, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}

// Send transfers amount to the recipient address after a simulated
// confirmation delay. amount is the decimal text entered by the user.
// If ctx ends during the delay nothing is written. The balance is checked
// again once the delay is over.
func (s *Service) Send(ctx context.Context, to, amount string) (model.Transaction, error) {
	to = strings.TrimSpace(to)
	amount = strings.TrimSpace(amount)
	if to == "" || amount == "" {
		return model.Transaction{}, apperr.Invalid("send", "Recipient address and amount are required.")
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() {
		return model.Transaction{}, apperr.Invalid("amount", "Invalid amount.")
	}

	if _, err := s.covered(ctx, amt); err != nil {
		return model.Transaction{}, err
	}
	if err := wait(ctx, s.opts.SendDelay); err != nil {
		s.log.Info("send abandoned", "to", to, "err", err)
		return model.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bal, err := s.balanceCovers(ctx, amt)
	if err != nil {
		return model.Transaction{}, err
	}
	tx := model.Transaction{
		ID:        uuid.NewString(),
		Type:      model.TxSend,
		Amount:    amt.InexactFloat64(),
		To:        to,
		Timestamp: model.Millis(s.now()),
		Status:    model.TxSuccess,
	}
	if err := s.apply(ctx, bal, bal.Sub(amt), tx); err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// covered checks amt against the balance under the lock.
func (s *Service) covered(ctx context.Context, amt decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceCovers(ctx, amt)
}

// balanceCovers returns the balance if it covers amt. Callers hold s.mu.
func (s *Service) balanceCovers(ctx context.Context, amt decimal.Decimal) (decimal.Decimal, error) {
	bal, err := s.balance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if amt.GreaterThan(bal) {
		return decimal.Zero, apperr.Invalid("amount", "Insufficient balance.")
	}
	return bal, nil
}

// Receive credits a fixed mock amount from MockSender.
func (s *Service) Receive(ctx context.Context) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, err := s.balance(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	amt := decimal.NewFromInt(receiveAmount)
	tx := model.Transaction{
		ID:        uuid.NewString(),
		Type:      model.TxReceive,
		Amount:    amt.InexactFloat64(),
		From:      MockSender,
		Timestamp: model.Millis(s.now()),
		Status:    model.TxSuccess,
	}
	if err := s.apply(ctx, bal, bal.Add(amt), tx); err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// Refresh simulates re-reading the balance from the chain. The mock adds
// a small random whole amount and records no transaction.
func (s *Service) Refresh(ctx context.Context) (float64, error) {
	if err := wait(ctx, s.opts.RefreshDelay); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, err := s.balance(ctx)
	if err != nil {
		return 0, err
	}
	next := bal.Add(decimal.NewFromInt(int64(s.intn(refreshSpread))))
	if err := s.store.SetJSON(ctx, store.KeyWallet, model.Wallet{Balance: next.InexactFloat64()}); err != nil {
		return 0, err
	}
	s.log.Debug("balance refreshed", "balance", next.String())
	return next.InexactFloat64(), nil
}

// balance reads the stored balance, writing the seed when the key is
// absent. Callers hold s.mu.
func (s *Service) balance(ctx context.Context) (decimal.Decimal, error) {
	var w model.Wallet
	ok, err := s.store.GetJSON(ctx, store.KeyWallet, &w)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		w.Balance = s.opts.Seed
		if err := s.store.SetJSON(ctx, store.KeyWallet, w); err != nil {
			return decimal.Zero, err
		}
	}
	return decimal.NewFromFloat(w.Balance), nil
}

// apply prepends tx to the log and then writes the new balance. When the
// balance write fails the previous log is put back, so the two keys never
// disagree. Callers hold s.mu.
func (s *Service) apply(ctx context.Context, prev, bal decimal.Decimal, tx model.Transaction) error {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return err
	}
	next := make([]model.Transaction, 0, len(txs)+1)
	next = append(next, tx)
	next = append(next, txs...)
	if err := s.store.SetJSON(ctx, store.KeyTransactions, next); err != nil {
		return err
	}
	if err := s.store.SetJSON(ctx, store.KeyWallet, model.Wallet{Balance: bal.InexactFloat64()}); err != nil {
		if rerr := s.store.SetJSON(ctx, store.KeyTransactions, txs); rerr != nil {
			s.log.Error("transaction log rollback failed", "id", tx.ID, "balance", prev.String(), "err", rerr)
		}
		return err
	}
	metrics.WalletTransactions.WithLabelValues(tx.Type).Inc()
	s.log.Info("transaction recorded", "type", tx.Type, "amount", tx.Amount, "balance", bal.String())
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
