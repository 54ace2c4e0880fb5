// This program performs administrative tasks against a node's chain data.
package main

import "github.com/Caraveo/ZiaCoin-Network/app/tooling/admin/commands"

func main() {
	commands.Execute()
}
