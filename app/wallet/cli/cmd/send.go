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

var (
	to     string
	amount float64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Recipient account.")
	sendCmd.Flags().Float64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	sender := ledger.PublicKeyToAccountID(privateKey.PublicKey)

	userTx, err := ledger.NewTx(sender, ledger.AccountID(to), amount)
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := userTx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	var result struct {
		Status string `json:"status"`
		Block  uint64 `json:"block"`
	}

	client := resty.New().SetTimeout(5 * time.Second)
	resp, err := client.R().
		SetBody(signedTx).
		SetResult(&result).
		Post(fmt.Sprintf("%s/v1/tx", viper.GetString("url")))
	if err != nil {
		log.Fatal(err)
	}
	if resp.IsError() {
		log.Fatalf("node rejected transaction: %s", resp.String())
	}

	fmt.Printf("%s, expected in block %d\n", result.Status, result.Block)
}
