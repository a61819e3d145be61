package main

import (
	"AutoDjFM/cmd"
)

func main() {
	cmd.Execute()
}
