// Package commands contains the admin commands.
package commands

import (
	"fmt"
	"os"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/bolt"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/disk"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/leveldb"
	"github.com/spf13/cobra"
)

// defaultGenesisDifficulty seeds a fresh store the same way the node does.
const defaultGenesisDifficulty = 4

var (
	dbDriver string
	dbPath   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ziacoin-admin",
	Short: "Administrative tasks against a node's chain data",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbDriver, "db-driver", "d", "disk", "Storage driver: disk, leveldb or bolt.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "b", "zdata/chain", "Path to the chain data.")
}

// openStorage constructs the configured storage driver. The caller owns
// the returned storage and must close it.
func openStorage() (ledger.Storage, error) {
	switch dbDriver {
	case "disk":
		return disk.New(dbPath)
	case "leveldb":
		return leveldb.New(dbPath)
	case "bolt":
		return bolt.New(dbPath)
	}

	return nil, fmt.Errorf("unknown db driver %q", dbDriver)
}
