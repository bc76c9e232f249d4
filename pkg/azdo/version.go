package azdo

// Version is the azdo-mcp release version, reported to Azure DevOps in the
// User-Agent header and to MCP clients during initialization.
var Version = "0.1.0"
