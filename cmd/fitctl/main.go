package main

import (
	"os"

	"fitd/internal/fitctl"
)

func main() { os.Exit(fitctl.Main()) }
