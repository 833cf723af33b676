package core

import (
	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/common"
	"github.com/flashbots/streamscan/contracts"
	"github.com/flashbots/streamscan/database"
	"github.com/flashbots/streamscan/eventlog"
	"github.com/flashbots/streamscan/services/resolver"
	"github.com/flashbots/streamscan/vars"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ChainFlags select the node and the contract
type ChainFlags struct {
	EthNodeURI       string
	EthNodeBackupURI string

	ContractsFile   string
	ContractName    string
	ContractAddress string
	DeployBlock     uint64

	MaxBlockRange uint64
	Confirmations uint64
	ReorgDepth    uint64
}

func AddChainFlags(cmd *cobra.Command, f *ChainFlags) {
	cmd.Flags().StringVar(&f.EthNodeURI, "eth-node", vars.DefaultEthNodeURI, "eth node URI")
	cmd.Flags().StringVar(&f.EthNodeBackupURI, "eth-node-backup", vars.DefaultEthBackupNodeURI, "eth backup node URI")
	cmd.Flags().StringVar(&f.ContractsFile, "contracts-file", vars.DefaultContractsFile, "JSON file with deployed contracts (name -> address, abi, deployBlock)")
	cmd.Flags().StringVar(&f.ContractName, "contract-name", vars.DefaultContractName, "name of the stream contract")
	cmd.Flags().StringVar(&f.ContractAddress, "contract-address", vars.DefaultContractAddress, "stream contract address, used without --contracts-file")
	cmd.Flags().Uint64Var(&f.DeployBlock, "deploy-block", vars.DefaultDeployBlock, "first block to fetch events from, used without --contracts-file")
	cmd.Flags().Uint64Var(&f.MaxBlockRange, "max-block-range", chain.DefaultMaxBlockRange, "max blocks per getLogs request")
	cmd.Flags().Uint64Var(&f.Confirmations, "confirmations", 0, "stay this many blocks behind head")
	cmd.Flags().Uint64Var(&f.ReorgDepth, "reorg-depth", eventlog.DefaultReorgDepth, "re-fetch this many synced blocks every sync to drop reorged events")
}

// LoadDirectory returns the contract directory from the contracts file, or the embedded stream
// contract ABI at the configured address
func (f *ChainFlags) LoadDirectory() (*contracts.Directory, error) {
	if f.ContractsFile != "" {
		return contracts.LoadDirectory(f.ContractsFile)
	}
	return contracts.NewStreamDirectory(f.ContractName, f.ContractAddress, f.DeployBlock)
}

// Backend connects to the eth nodes. It returns a nil interface if no node is usable.
func (f *ChainFlags) Backend(log *logrus.Entry) (chain.Backend, *common.EthNode) {
	node, err := common.NewEthNode(log, f.EthNodeURI, f.EthNodeBackupURI)
	if err != nil {
		log.WithError(err).Error("couldn't connect to eth node")
		return nil, nil
	}
	return node, node
}

func (f *ChainFlags) BlockTimes(log *logrus.Entry) chain.BlockTimeSource {
	blockTimes, err := chain.NewBlockTimes(chain.DefaultBlockCacheSize, f.EthNodeURI, f.EthNodeBackupURI)
	if err != nil {
		log.WithError(err).Fatal("couldn't create block time cache")
	}
	return blockTimes
}

// PipelineFlags add the resolution settings to ChainFlags
type PipelineFlags struct {
	ChainFlags

	PostgresDSN        string
	UnknownPolicy      string
	MaxConcurrentReads int
}

func AddPipelineFlags(cmd *cobra.Command, f *PipelineFlags) {
	AddChainFlags(cmd, &f.ChainFlags)
	cmd.Flags().StringVar(&f.PostgresDSN, "postgres-dsn", vars.DefaultPostgresDSN, "keep the event log in postgres instead of memory")
	cmd.Flags().StringVar(&f.UnknownPolicy, "unknown-policy", string(resolver.UnknownExclude), "what a failed cap read means: exclude, include or keep-previous")
	cmd.Flags().IntVar(&f.MaxConcurrentReads, "max-reads", resolver.DefaultMaxConcurrentReads, "max concurrent cap reads")
}

// NewPipeline builds the pipeline from flags. Configuration failures don't stop it, they
// leave the pipeline not ready. db is nil without --postgres-dsn. The returned cleanup closes
// the node and database connections.
func NewPipeline(log *logrus.Entry, f *PipelineFlags, publishers ...resolver.Publisher) (pipeline *resolver.Pipeline, db *database.DatabaseService, cleanup func()) {
	policy, err := resolver.ParseUnknownPolicy(f.UnknownPolicy)
	if err != nil {
		log.WithError(err).Fatal("invalid --unknown-policy")
	}

	dir, dirErr := f.LoadDirectory()
	backend, node := f.Backend(log)

	var store eventlog.Store
	if f.PostgresDSN != "" {
		db = database.MustConnectPostgres(log, f.PostgresDSN)
		store = db
	}

	pipeline = resolver.NewPipeline(&resolver.PipelineOpts{
		Log:                log,
		Directory:          dir,
		DirectoryErr:       dirErr,
		ContractName:       f.ContractName,
		Backend:            backend,
		BlockTimes:         f.BlockTimes(log),
		Store:              store,
		MaxBlockRange:      f.MaxBlockRange,
		Confirmations:      f.Confirmations,
		ReorgDepth:         f.ReorgDepth,
		UnknownPolicy:      policy,
		MaxConcurrentReads: f.MaxConcurrentReads,
		Publishers:         publishers,
	})

	cleanup = func() {
		if node != nil {
			node.Close()
		}
		if db != nil {
			_ = db.Close()
		}
	}
	return pipeline, db, cleanup
}
