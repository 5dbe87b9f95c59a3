// services/flickering/main.go
package main

import (
	"os"

	"example.com/backstage/services/flickering/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
