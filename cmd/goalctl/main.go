package main

import (
	_ "time/tzdata"

	"github.com/goalreminder/goal-reminder/internal/cli"
)

func main() {
	cli.Main()
}
