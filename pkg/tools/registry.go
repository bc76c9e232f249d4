// Package tools registers the Azure DevOps tool surface on an MCP server.
// Every tool goes through the same registration primitive: a typed argument
// struct validated by the SDK before the handler runs, a lazy connection to
// the service, and a uniform text+isError result envelope.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joshcarp/azdo-mcp/pkg/azdo"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Connector lazily acquires a fresh authenticated client. Handlers call it
// only after their arguments validate, so a bad invocation never constructs
// a connection.
type Connector func(ctx context.Context) (*azdo.Client, error)

// handlerFunc is the contract every tool body obeys: validated arguments in,
// serialized payload out. Any returned error is normalized by the wrapper;
// handlers never write envelopes themselves.
type handlerFunc[In any] func(ctx context.Context, connect Connector, args In) (string, error)

// Registry maps tool identifiers to handlers on the live MCP server. It is
// populated once at startup by the group registrars and read-only afterward.
type Registry struct {
	server  *mcp.Server
	connect Connector
	names   map[string]bool
}

// NewRegistry wraps an MCP server and a connection factory.
func NewRegistry(server *mcp.Server, factory *azdo.Factory) *Registry {
	return &Registry{
		server:  server,
		connect: factory.Connect,
		names:   make(map[string]bool),
	}
}

// domainRegistrar pairs a tool group name with its registrar function.
type domainRegistrar struct {
	name     string
	register func(*Registry)
}

// domains lists the tool groups in registration order.
var domains = []domainRegistrar{
	{"core", registerCoreTools},
	{"work", registerWorkTools},
	{"workitems", registerWorkItemTools},
	{"repos", registerRepoTools},
	{"builds", registerBuildTools},
	{"releases", registerReleaseTools},
	{"wiki", registerWikiTools},
	{"testplans", registerTestPlanTools},
	{"search", registerSearchTools},
}

// RegisterAll runs every registrar enabled by the configuration. Must be
// called before the server starts accepting invocations.
func (r *Registry) RegisterAll(cfg azdo.Config) {
	for _, d := range domains {
		if cfg.DomainEnabled(d.name) {
			d.register(r)
		}
	}
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.names)
}

// register adds one tool under a unique identifier. Registering the same
// identifier twice is a programming error and panics at startup. The noun
// names the operation in failure messages, e.g. "list pull requests: <cause>".
func register[In any](r *Registry, name, noun, description string, fn handlerFunc[In]) {
	if r.names[name] {
		panic(fmt.Sprintf("tools: %q registered twice", name))
	}
	r.names[name] = true

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[In]) (*mcp.CallToolResultFor[any], error) {
		return runTool(ctx, noun, r.connect, params.Arguments, fn), nil
	})
}

// runTool executes one handler and normalizes every failure, including a
// panic, into the error envelope. Nothing escapes to the dispatch loop.
func runTool[In any](ctx context.Context, noun string, connect Connector, args In, fn handlerFunc[In]) (result *mcp.CallToolResultFor[any]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = errorResult(fmt.Sprintf("%s: internal error: %v", noun, rec))
		}
	}()

	out, err := fn(ctx, connect, args)
	if err != nil {
		return errorResult(noun + ": " + err.Error())
	}
	return textResult(out)
}

// errorResult wraps a diagnostic message in the failure envelope.
func errorResult(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// textResult wraps a payload in the success envelope.
func textResult(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// asJSON serializes a shaped payload for the text content block.
func asJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}
