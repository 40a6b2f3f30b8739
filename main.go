package main

import "github.com/icco/beatscribe/cmd"

func main() {
	cmd.Execute()
}
