// pkg/blockchain/solana/rpc_pool.go
package solana

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

type RPCPool struct {
	clients []*rpc.Client
	mutex   sync.Mutex
	index   int
	logger  *zap.Logger
}

func NewRPCPool(rpcList []string, logger *zap.Logger) *RPCPool {
	// Создаем список RPC-клиентов из rpcList
	var clients []*rpc.Client
	for _, url := range rpcList {
		client := rpc.New(url)
		clients = append(clients, client)
	}

	return &RPCPool{
		clients: clients,
		index:   0,
		logger:  logger,
	}
}

func (p *RPCPool) GetClient() *rpc.Client {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Возвращаем следующий доступный RPC-клиент (круговой цикл)
	client := p.clients[p.index]
	p.index = (p.index + 1) % len(p.clients)
	return client
}

func (p *RPCPool) CheckClientHealth(client *rpc.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	return err == nil
}

func (p *RPCPool) PerformHealthChecks() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	healthy := p.clients[:0]
	for i, client := range p.clients {
		if p.CheckClientHealth(client) {
			healthy = append(healthy, client)
		} else {
			p.logger.Warn("RPC клиент недоступен, удаляем из пула", zap.Int("index", i))
		}
	}
	p.clients = healthy
	if p.index >= len(p.clients) {
		p.index = 0
	}
}
