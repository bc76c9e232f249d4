package main

import (
	"fmt"

	"github.com/joshcarp/azdo-mcp/pkg/azdo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("azdo-mcp v%s\n", azdo.Version)
	},
}
