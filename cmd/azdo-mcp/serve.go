package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joshcarp/azdo-mcp/pkg/azdo"
	"github.com/joshcarp/azdo-mcp/pkg/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var (
	flagOrganization string
	flagConfigPath   string
	flagDomains      []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Azure DevOps MCP server",
	Long: `Run an MCP server exposing Azure DevOps tools.

The server communicates over stdin/stdout using the MCP protocol, so all
logging goes to stderr and ~/.azdo-mcp/azdo-mcp.log.

Examples:
  azdo-mcp serve --organization contoso
  azdo-mcp serve -o contoso --domains repos,workitems
  AZDO_ORG=contoso AZDO_PAT=... azdo-mcp serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&flagOrganization, "organization", "o", "", "Azure DevOps organization name")
	serveCmd.Flags().StringVar(&flagConfigPath, "config", "", "Path to a YAML config file (default ~/.azdo-mcp/config.yaml)")
	serveCmd.Flags().StringSliceVar(&flagDomains, "domains", nil, "Tool groups to enable (default all): core,work,workitems,repos,builds,releases,wiki,testplans,search")
}

// setupLogging configures logging to write to ~/.azdo-mcp/azdo-mcp.log.
// Stdout carries the MCP transport and must never receive log output.
func setupLogging() (*os.File, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	logDir := filepath.Join(homeDir, ".azdo-mcp")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(logDir, "azdo-mcp.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	// Write to both stderr and log file
	multiWriter := io.MultiWriter(os.Stderr, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	return logFile, nil
}

// loadConfig merges the YAML config file with flags and environment. Flags
// win over env, env wins over file. The result is immutable from here on.
func loadConfig() (azdo.Config, error) {
	path := flagConfigPath
	if path == "" {
		defaultPath, err := azdo.GetConfigPath()
		if err != nil {
			return azdo.Config{}, err
		}
		path = defaultPath
	}

	fileCfg, err := azdo.LoadConfigFile(path)
	if err != nil {
		return azdo.Config{}, err
	}
	cfg := *fileCfg

	if env := os.Getenv("AZDO_ORG"); env != "" {
		cfg.Organization = env
	}
	if flagOrganization != "" {
		cfg.Organization = flagOrganization
	}
	if env := os.Getenv("AZDO_PAT"); env != "" {
		cfg.PAT = env
	}
	if len(flagDomains) > 0 {
		cfg.Domains = flagDomains
	}

	if err := cfg.Validate(); err != nil {
		return azdo.Config{}, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logFile, err := setupLogging()
	if err != nil {
		log.Printf("Warning: failed to setup file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Printf("=== azdo-mcp serve starting ===")
	log.Printf("Version: %s", azdo.Version)
	log.Printf("OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Printf("Go version: %s", runtime.Version())
	log.Printf("Time: %s", time.Now().Format(time.RFC3339))
	log.Printf("PID: %d", os.Getpid())

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("ERROR: failed to load config: %v", err)
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("Organization: %s", cfg.Organization)

	cred, err := azdo.NewCredentialProvider(cfg.PAT)
	if err != nil {
		log.Printf("ERROR: failed to initialize credentials: %v", err)
		return fmt.Errorf("failed to initialize credentials: %w", err)
	}
	if cfg.PAT != "" {
		log.Printf("Auth: personal access token")
	} else {
		log.Printf("Auth: ambient Azure identity")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mcpServer := mcp.NewServer("azdo-mcp", azdo.Version, nil)

	registry := tools.NewRegistry(mcpServer, azdo.NewFactory(cfg, cred))
	registry.RegisterAll(cfg)
	log.Printf("Registered %d tools", registry.Len())

	log.Printf("Starting MCP server on stdio")
	return mcpServer.Run(ctx, mcp.NewStdioTransport())
}
