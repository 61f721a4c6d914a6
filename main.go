package main

import "github/chapool/go-ledger/cmd"

func main() {
	cmd.Execute()
}
