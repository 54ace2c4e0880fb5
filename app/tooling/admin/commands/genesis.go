package commands

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Print the genesis block",
	Run:   genesisRun,
}

func init() {
	rootCmd.AddCommand(genesisCmd)
}

func genesisRun(cmd *cobra.Command, args []string) {
	strg, err := openStorage()
	if err != nil {
		log.Fatal(err)
	}
	defer strg.Close()

	lgr, err := ledger.New(strg, defaultGenesisDifficulty, nil)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.MarshalIndent(lgr.GenesisBlock(), "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(data))
}
