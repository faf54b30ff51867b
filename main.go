package main

import "github.com/fullmargin/factures/cmd"

func main() {
	cmd.Execute()
}
