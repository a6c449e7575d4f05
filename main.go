package main

import "github.com/jmlago/prediction-arb/cmd"

func main() {
	cmd.Execute()
}
