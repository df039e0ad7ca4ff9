package main

import (
	"os"

	_ "time/tzdata" // kiosk images often ship without /usr/share/zoneinfo
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
