// Package cmd contains the wallet commands.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const keyExtension = ".ecdsa"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ziacoin-wallet",
	Short: "Generate keys, sign and submit transactions",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("account", "a", "private.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringP("account-path", "p", "zdata/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8080", "Url of the node.")

	viper.BindPFlag("account", rootCmd.PersistentFlags().Lookup("account"))
	viper.BindPFlag("account-path", rootCmd.PersistentFlags().Lookup("account-path"))
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	// Every flag can be overridden by a ZIACOIN_ prefixed variable, with
	// dashes mapping to underscores.
	viper.SetEnvPrefix("ZIACOIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func getPrivateKeyPath() string {
	accountName := viper.GetString("account")
	if !strings.HasSuffix(accountName, keyExtension) {
		accountName += keyExtension
	}

	return filepath.Join(viper.GetString("account-path"), accountName)
}
