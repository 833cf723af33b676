// Package vars contains global variables and configuration
package vars

import (
	"os"
	"strconv"

	"github.com/flashbots/streamscan/common"
)

var (
	Version  = "dev" // is set during build process
	LogDebug = os.Getenv("DEBUG") != ""
	LogJSON  = os.Getenv("LOG_JSON") != ""

	DefaultPostgresDSN      = common.GetEnv("POSTGRES_DSN", "")
	DefaultRedisURI         = common.GetEnv("REDIS_URI", "")
	DefaultLogLevel         = common.GetEnv("LOG_LEVEL", "info")
	DefaultEthNodeURI       = common.GetEnv("ETH_NODE_URI", "http://localhost:8545")
	DefaultEthBackupNodeURI = common.GetEnv("ETH_NODE_BACKUP_URI", "")

	DefaultContractsFile   = common.GetEnv("CONTRACTS_FILE", "")
	DefaultContractName    = common.GetEnv("CONTRACT_NAME", "YourContract")
	DefaultContractAddress = common.GetEnv("STREAM_CONTRACT_ADDRESS", "")
	DefaultDeployBlock     = getDeployBlock()

	DefaultListenAddr = common.GetEnv("LISTEN_ADDR", "localhost:9060")
)

// getDeployBlock falls back to 0 when DEPLOY_BLOCK is missing or invalid
func getDeployBlock() uint64 {
	if envBlock := os.Getenv("DEPLOY_BLOCK"); envBlock != "" {
		if parsed, err := strconv.ParseUint(envBlock, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
