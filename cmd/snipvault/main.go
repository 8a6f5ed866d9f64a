// Package main 启动 snipvault.
package main

import (
	"os"

	"github.com/yeisme/snipvault/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
