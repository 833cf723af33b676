package common

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const (
	rpcMaxRetries     = 3
	rpcRequestTimeout = 30 * time.Second
)

// EthNode wraps one or more execution clients. Every call is tried on each client in order until one succeeds.
type EthNode struct {
	Clients []*ethclient.Client
	URIs    []string
}

func NewEthNode(log *logrus.Entry, uris ...string) (*EthNode, error) {
	node := &EthNode{} //nolint:exhaustruct
	httpClient := newRetryableHTTPClient(log)
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		rpcClient, err := rpc.DialOptions(context.Background(), uri, rpc.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("error connecting to eth node %s: %w", uri, err)
		}
		node.Clients = append(node.Clients, ethclient.NewClient(rpcClient))
		node.URIs = append(node.URIs, uri)
	}
	if len(node.Clients) == 0 {
		return nil, ErrURLEmpty
	}
	return node, nil
}

func newRetryableHTTPClient(log *logrus.Entry) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = rpcMaxRetries
	client.Logger = nil
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		yes, err2 := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if yes && log != nil {
			if resp == nil {
				log.WithError(err2).Warn("retrying request to eth node")
			} else {
				log.WithField("statusCode", resp.Status).WithError(err2).Warn("retrying request to eth node")
			}
		}
		return yes, err2
	}
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.HTTPClient.Timeout = rpcRequestTimeout
	return client.StandardClient()
}

func (n *EthNode) BlockNumber(ctx context.Context) (blockNumber uint64, err error) {
	err = ErrAllNodesFailed
	for _, client := range n.Clients {
		blockNumber, err = client.BlockNumber(ctx)
		if err == nil {
			return blockNumber, nil
		}
	}
	return 0, err
}

func (n *EthNode) FilterLogs(ctx context.Context, query ethereum.FilterQuery) (logs []types.Log, err error) {
	err = ErrAllNodesFailed
	for _, client := range n.Clients {
		logs, err = client.FilterLogs(ctx, query)
		if err == nil {
			return logs, nil
		}
	}
	return nil, err
}

func (n *EthNode) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (result []byte, err error) {
	err = ErrAllNodesFailed
	for _, client := range n.Clients {
		result, err = client.CallContract(ctx, msg, blockNumber)
		if err == nil {
			return result, nil
		}
	}
	return nil, err
}

func (n *EthNode) Close() {
	for _, client := range n.Clients {
		client.Close()
	}
}
