package util

import (
	"context"
	"fmt"
	"sort"

	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/cmd/core"
	"github.com/flashbots/streamscan/common"
	"github.com/flashbots/streamscan/contracts"
	"github.com/spf13/cobra"
)

var (
	inspectFlags   core.ChainFlags
	inspectBuilder string
)

func init() {
	core.AddChainFlags(inspectContractCmd, &inspectFlags)
	inspectContractCmd.Flags().StringVar(&inspectBuilder, "builder", "", "read the stream of this builder address")
}

var inspectContractCmd = &cobra.Command{
	Use:   "inspect-contract",
	Short: "Print the stream contract's directory entry and live settings",
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := inspectFlags.LoadDirectory()
		if err != nil {
			log.WithError(err).Fatal("couldn't load contract directory")
		}
		contract, err := dir.Get(inspectFlags.ContractName)
		if err != nil {
			log.WithError(err).Fatal("couldn't find contract")
		}

		fmt.Printf("name:         %s\n", contract.Name)
		fmt.Printf("address:      %s\n", contract.Address.Hex())
		fmt.Printf("deploy block: %d\n", contract.DeployBlock)

		events := make([]string, 0, len(contract.ABI.Events))
		for _, e := range contract.ABI.Events {
			events = append(events, e.Sig)
		}
		sort.Strings(events)
		fmt.Println("events:")
		for _, e := range events {
			fmt.Printf("- %s\n", e)
		}

		backend, node := inspectFlags.Backend(log)
		if backend == nil {
			return
		}
		defer node.Close()
		reader := chain.NewContractReader(backend)
		ctx := context.Background()

		if _, ok := contract.ABI.Methods[contracts.FuncFrequency]; ok {
			values, err := reader.Read(ctx, contract, contracts.FuncFrequency)
			if err != nil {
				log.WithError(err).Warn("couldn't read frequency")
			} else if len(values) > 0 {
				fmt.Printf("frequency:    %v seconds\n", values[0])
			}
		}

		if inspectBuilder == "" {
			return
		}
		builder, err := common.ParseAddress(inspectBuilder)
		if err != nil {
			log.WithError(err).Fatal("invalid --builder")
		}

		info, err := reader.StreamedBuilder(ctx, contract, builder)
		if err != nil {
			log.WithError(err).Fatal("couldn't read streamedBuilders")
		}
		streamCap := common.BigIntOrZero(info.Cap)
		fmt.Printf("\nbuilder:      %s\n", builder.Hex())
		fmt.Printf("cap:          %s ETH\n", common.WeiToEthStr(streamCap))
		fmt.Printf("last:         %s\n", common.BigIntOrZero(info.Last).String())
		fmt.Printf("eligible:     %t\n", streamCap.Sign() > 0)

		if _, ok := contract.ABI.Methods[contracts.FuncUnlockedBuilderAmount]; ok {
			values, err := reader.Read(ctx, contract, contracts.FuncUnlockedBuilderAmount, builder)
			if err != nil {
				log.WithError(err).Warn("couldn't read unlocked amount")
			} else if len(values) > 0 {
				fmt.Printf("unlocked:     %v wei\n", values[0])
			}
		}
	},
}
