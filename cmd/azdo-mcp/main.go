package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "azdo-mcp",
	Short: "Azure DevOps tools over the Model Context Protocol",
	Long: `azdo-mcp: Azure DevOps as MCP tools.

An MCP (Model Context Protocol) server that exposes Azure DevOps projects,
work items, repositories, pull requests, builds, releases, wikis, test plans
and search as callable tools over stdio.

Usage:
  azdo-mcp serve --organization contoso   Run the MCP server
  azdo-mcp version                        Show version information

Authentication: set AZDO_PAT to a personal access token, or leave it unset
to use the ambient Azure identity (environment, managed identity, Azure CLI).`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
