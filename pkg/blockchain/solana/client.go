// pkg/blockchain/solana/client.go
package solana

import (
	"context"
	"errors"
	"net/url"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

type Client struct {
	rpcPool *RPCPool
	logger  *zap.Logger
}

// NewClient создает новый экземпляр клиента Solana
func NewClient(rpcList []string, logger *zap.Logger) (*Client, error) {
	if len(rpcList) == 0 {
		return nil, errors.New("empty RPC list")
	}

	for _, rpcURL := range rpcList {
		if _, err := url.Parse(rpcURL); err != nil {
			return nil, errors.New("invalid RPC URL: " + rpcURL)
		}
	}

	rpcPool := NewRPCPool(rpcList, logger)

	// Попробуем подключиться к первому RPC для проверки
	if err := testConnection(rpcPool.GetClient()); err != nil {
		return nil, err
	}

	return &Client{
		rpcPool: rpcPool,
		logger:  logger,
	}, nil
}

func testConnection(client *rpc.Client) error {
	_, err := client.GetLatestBlockhash(context.Background(), rpc.CommitmentFinalized)
	return err
}

func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	rpcClient := c.rpcPool.GetClient()
	txHash, err := rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		c.logger.Error("Ошибка отправки транзакции", zap.Error(err))
		return solana.Signature{}, err
	}
	return txHash, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	rpcClient := c.rpcPool.GetClient()
	result, err := rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("Ошибка получения blockhash", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// AccountSnapshot — результат пакетной загрузки аккаунтов:
// данные по ключу плюс слот, на котором снимок консистентен.
type AccountSnapshot struct {
	Slot     uint64
	Accounts map[solana.PublicKey]AccountData
}

type AccountData struct {
	Data  []byte
	Owner solana.PublicKey
}

// GetMultipleAccounts загружает набор аккаунтов одним запросом.
// Отсутствующие аккаунты просто не попадают в результат.
func (c *Client) GetMultipleAccounts(ctx context.Context, keys []solana.PublicKey) (*AccountSnapshot, error) {
	rpcClient := c.rpcPool.GetClient()
	result, err := rpcClient.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("Ошибка загрузки аккаунтов", zap.Error(err))
		return nil, err
	}

	snapshot := &AccountSnapshot{
		Slot:     result.Context.Slot,
		Accounts: make(map[solana.PublicKey]AccountData, len(keys)),
	}
	for i, account := range result.Value {
		if account == nil {
			continue
		}
		snapshot.Accounts[keys[i]] = AccountData{
			Data:  account.Data.GetBinary(),
			Owner: account.Owner,
		}
	}
	return snapshot, nil
}
