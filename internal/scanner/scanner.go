// =============================
// File: internal/scanner/scanner.go
// =============================
package scanner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-mev/internal/config"
	"github.com/rovshanmuradov/solana-mev/internal/metrics"
	"github.com/rovshanmuradov/solana-mev/internal/mev"
	"github.com/rovshanmuradov/solana-mev/internal/mevlog"
	"github.com/rovshanmuradov/solana-mev/internal/wallet"
	solclient "github.com/rovshanmuradov/solana-mev/pkg/blockchain/solana"
)

// Runner опрашивает состояние пулов по RPC, сравнивает снимки между
// тиками и прогоняет каждое изменение через арбитражный движок.
// Это standalone-режим: без доступа к рантайму валидатора "интересная
// транзакция" вырождается в "состояние пула изменилось между тиками".
type Runner struct {
	cfg        *config.Config
	engine     *mev.Mev
	client     *solclient.Client
	mevLog     *mevlog.Log
	authority  *wallet.Wallet
	logger     *zap.Logger
	shutdownCh chan os.Signal
}

// NewRunner собирает все зависимости сканера. Кошелек опционален:
// без него сканер наблюдает и логирует, но не отправляет транзакции.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine config: %w", err)
	}

	var authority *wallet.Wallet
	if cfg.UserAuthorityPath != "" {
		authority, err = wallet.FromFile(cfg.UserAuthorityPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load user authority: %w", err)
		}
		logger.Info("Кошелек загружен", zap.String("authority", authority.PublicKey.String()))
	}

	client, err := solclient.NewClient(cfg.RPCList, logger.Named("rpc"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	mevLog, err := mevlog.New(cfg.LogPath, logger.Named("mevlog"))
	if err != nil {
		return nil, fmt.Errorf("failed to open MEV log: %w", err)
	}

	return &Runner{
		cfg:        cfg,
		engine:     mev.New(engineCfg, authority, mevLog, logger),
		client:     client,
		mevLog:     mevLog,
		authority:  authority,
		logger:     logger.Named("scanner"),
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Run запускает метрики и цикл сканирования до сигнала или ошибки.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("Signal received: " + sig.String())
		cancel()
	}()

	g, gCtx := errgroup.WithContext(runCtx)

	metrics.Serve(gCtx, r.cfg.MetricsAddr, r.logger)

	g.Go(func() error {
		return r.scanLoop(gCtx)
	})

	err := g.Wait()
	r.mevLog.Shutdown()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (r *Runner) scanLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.ScanInterval())
	defer ticker.Stop()

	var prev mev.PoolStates
	var prevSlot uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snapshot, err := r.fetchSnapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("Не удалось загрузить снимок аккаунтов", zap.Error(err))
			continue
		}

		states, err := r.engine.CapturePoolStates(snapshotLoader{snapshot.Accounts})
		if err != nil {
			continue
		}

		if prev != nil && snapshot.Slot != prevSlot && poolStatesChanged(prev, states) {
			r.evaluate(ctx, prev, states, snapshot.Slot)
		}
		prev = states
		prevSlot = snapshot.Slot
	}
}

// fetchSnapshot загружает все отслеживаемые аккаунты одним запросом,
// с ретраями на временных ошибках RPC.
func (r *Runner) fetchSnapshot(ctx context.Context) (*solclient.AccountSnapshot, error) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = 200 * time.Millisecond
	backoffPolicy.MaxInterval = 2 * time.Second

	notify := func(err error, duration time.Duration) {
		r.logger.Debug("Повтор запроса аккаунтов", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (*solclient.AccountSnapshot, error) {
		return r.client.GetMultipleAccounts(ctx, r.engine.MevKeys())
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(3),
		backoff.WithNotify(notify))
}

func (r *Runner) evaluate(ctx context.Context, pre, post mev.PoolStates, slot uint64) {
	blockhash, err := r.client.GetLatestBlockhash(ctx)
	if err != nil {
		r.logger.Warn("Не удалось получить blockhash, пропускаем тик", zap.Error(err))
		return
	}

	meta := mev.TxMeta{Hash: blockhash, Slot: slot}
	submission := r.engine.Evaluate(pre, post, meta, blockhash)
	if submission == nil || r.authority == nil {
		return
	}

	signature, err := r.client.SendTransaction(ctx, submission.Tx)
	successful := err == nil
	if successful {
		metrics.SubmittedTransactions.Inc()
		r.logger.Info("Арбитражная транзакция отправлена",
			zap.String("signature", signature.String()),
			zap.Uint64("possible_profit", submission.Profit))
	} else {
		r.logger.Error("Не удалось отправить арбитражную транзакцию", zap.Error(err))
	}
	r.engine.LogExecution(blockhash, signature, successful, submission.Profit)
}

// poolStatesChanged сравнивает балансы пулов между снимками.
func poolStatesChanged(prev, cur mev.PoolStates) bool {
	for addr, curState := range cur {
		prevState, ok := prev[addr]
		if !ok {
			return true
		}
		if prevState.PoolABalance != curState.PoolABalance ||
			prevState.PoolBBalance != curState.PoolBBalance {
			return true
		}
	}
	return false
}

// snapshotLoader адаптирует пакетный снимок RPC к интерфейсу загрузчика.
type snapshotLoader struct {
	accounts map[solana.PublicKey]solclient.AccountData
}

func (l snapshotLoader) Account(key solana.PublicKey) ([]byte, solana.PublicKey, bool) {
	account, ok := l.accounts[key]
	if !ok {
		return nil, solana.PublicKey{}, false
	}
	return account.Data, account.Owner, true
}
