// Command voter is a client for the on-ledger voting contract: it connects a
// wallet, keeps the candidate tallies in sync and submits one vote per account.
package main

import "edu-voting/cmd/voter/cmd"

func main() {
	cmd.Execute()
}
