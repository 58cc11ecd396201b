package main

import (
	"github.com/myrfy001/Xline/cmd"
)

func main() {
	cmd.Execute()
}
