package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance for the specified wallet",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	accountID := ledger.PublicKeyToAccountID(privateKey.PublicKey)
	fmt.Println("For Account:", accountID)

	var result struct {
		Account string  `json:"account"`
		Balance float64 `json:"balance"`
	}

	client := resty.New().SetTimeout(5 * time.Second)
	resp, err := client.R().
		SetResult(&result).
		Get(fmt.Sprintf("%s/v1/balance/%s", viper.GetString("url"), accountID))
	if err != nil {
		log.Fatal(err)
	}
	if resp.IsError() {
		log.Fatalf("node error: %s", resp.String())
	}

	fmt.Println(result.Balance)
}
