package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup <name>",
	Short: "Snapshot the stored chain under the specified name",
	Args:  cobra.ExactArgs(1),
	Run:   backupRun,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the stored chain with the named snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   restoreRun,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

func backupRun(cmd *cobra.Command, args []string) {
	strg, err := openStorage()
	if err != nil {
		log.Fatal(err)
	}
	defer strg.Close()

	if err := strg.Backup(args[0]); err != nil {
		log.Fatal(err)
	}

	fmt.Println("backup written:", args[0])
}

func restoreRun(cmd *cobra.Command, args []string) {
	strg, err := openStorage()
	if err != nil {
		log.Fatal(err)
	}
	defer strg.Close()

	if err := strg.Restore(args[0]); err != nil {
		log.Fatal(err)
	}

	fmt.Println("restored from:", args[0])
}
