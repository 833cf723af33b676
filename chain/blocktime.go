package chain

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/metachris/flashbotsrpc"
)

const DefaultBlockCacheSize = 4096

var errNilBlock = errors.New("node returned no block")

type BlockTimeSource interface {
	BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error)
}

type blockGetter interface {
	EthGetBlockByNumber(number int, withTransactions bool) (*flashbotsrpc.Block, error)
}

// BlockTimes resolves block timestamps with primary/backup fallback. Results are cached, since
// the blocks containing past events are final.
type BlockTimes struct {
	clients []blockGetter
	cache   *lru.Cache
}

func NewBlockTimes(cacheSize int, uris ...string) (*BlockTimes, error) {
	clients := make([]blockGetter, 0, len(uris))
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		clients = append(clients, flashbotsrpc.New(uri))
	}
	return newBlockTimes(cacheSize, clients...)
}

func newBlockTimes(cacheSize int, clients ...blockGetter) (*BlockTimes, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultBlockCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &BlockTimes{
		clients: clients,
		cache:   cache,
	}, nil
}

func (b *BlockTimes) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	if ts, ok := b.cache.Get(blockNumber); ok {
		return ts.(uint64), nil
	}

	err := errNilBlock
	for _, client := range b.clients {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		var block *flashbotsrpc.Block
		block, err = client.EthGetBlockByNumber(int(blockNumber), false)
		if err != nil {
			continue
		}
		if block == nil {
			err = errNilBlock
			continue
		}
		ts := uint64(block.Timestamp)
		b.cache.Add(blockNumber, ts)
		return ts, nil
	}
	return 0, fmt.Errorf("block %d: %w", blockNumber, err)
}
