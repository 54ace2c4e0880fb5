package commands

import (
	"fmt"
	"log"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Walk the stored chain and report the first violation",
	Run:   validateRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) {
	strg, err := openStorage()
	if err != nil {
		log.Fatal(err)
	}
	defer strg.Close()

	lgr, err := ledger.New(strg, defaultGenesisDifficulty, nil)
	if err != nil {
		log.Fatalf("chain not valid: %s", err)
	}

	if err := lgr.Validate(); err != nil {
		log.Fatalf("chain not valid: %s", err)
	}

	fmt.Printf("chain valid at height %d\n", lgr.Height())
}
