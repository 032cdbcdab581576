package main

import "github.com/temper-mc/prforum/cmd"

func main() {
	cmd.Execute()
}
