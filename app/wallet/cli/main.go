// This program provides a simple wallet for signing and submitting
// transactions to a node.
package main

import "github.com/Caraveo/ZiaCoin-Network/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
