package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

// Options tune tool handler behavior
type Options struct {
	ReadOnly  bool
	ExportDir string

	// ClientOptions are applied to clients built for per-connection tokens
	ClientOptions []taiga.ClientOption

	// NetworkClients is set when several remote clients share the handlers;
	// authenticate is refused so no client can switch the shared identity.
	NetworkClients bool
}

// ToolHandlers contains all MCP tool handlers
type ToolHandlers struct {
	client   *taiga.Client
	resolver *taiga.Resolver
	session  *taiga.Session // nil when the client carries a static token
	reports  *ReportGenerator
	opts     Options
}

// NewToolHandlers creates new tool handlers. session may be nil when the
// client authenticates with a pre-issued token.
func NewToolHandlers(client *taiga.Client, session *taiga.Session, opts Options) *ToolHandlers {
	if opts.ReadOnly {
		slog.Info("read-only mode enabled - all write operations will be blocked")
	}
	return &ToolHandlers{
		client:   client,
		resolver: taiga.NewResolver(client),
		session:  session,
		reports:  NewReportGenerator(opts.ExportDir),
		opts:     opts,
	}
}

// backend is the client and resolver pair serving one tool call
type backend struct {
	client   *taiga.Client
	resolver *taiga.Resolver
}

// backend returns the connection's own client when the caller supplied a
// token, and the shared session client otherwise.
func (h *ToolHandlers) backend(ctx context.Context) backend {
	if token, ok := tokenFromContext(ctx); ok {
		client := taiga.NewClient(h.client.BaseURL(), taiga.StaticToken(token), h.opts.ClientOptions...)
		return backend{client: client, resolver: taiga.NewResolver(client)}
	}
	return backend{client: h.client, resolver: h.resolver}
}

// checkReadOnly returns an error if the server is in read-only mode.
func (h *ToolHandlers) checkReadOnly() error {
	if h.opts.ReadOnly {
		return fmt.Errorf("server is in read-only mode - write operations are disabled")
	}
	return nil
}

// failed is the single error shape every tool reports
func failed(action string, err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err)), nil
}

func textResult(text string) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(text), nil
}

// decodeArgs copies the call arguments into a typed struct. Numbers sent as
// strings (and the reverse) are accepted.
func decodeArgs(req mcp.CallToolRequest, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(req.GetArguments()); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// requireArgs reports the first empty value among name/value pairs
func requireArgs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s is required", pairs[i])
		}
	}
	return nil
}

// isNone reports whether an optional reference argument asks to clear the field
func isNone(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "null", "unassigned":
		return true
	}
	return false
}

func boolPtr(b bool) *bool { return &b }

// destructive marks a tool that removes remote data
func destructive() mcp.ToolOption {
	return mcp.WithToolAnnotation(mcp.ToolAnnotation{
		DestructiveHint: boolPtr(true),
	})
}

var errNoChanges = errors.New("no fields to update")

// McpServer interface for registering tools
type McpServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// RegisterTools registers all MCP tools on the server
func (h *ToolHandlers) RegisterTools(s McpServer) {
	h.registerProjectTools(s)
	h.registerMemberTools(s)
	for _, kind := range []taiga.ItemKind{taiga.KindUserStory, taiga.KindTask, taiga.KindIssue, taiga.KindEpic} {
		h.registerItemTools(s, kind)
	}
	h.registerEpicLinkTools(s)
	h.registerMilestoneTools(s)
	h.registerWikiTools(s)
	h.registerActivityTools(s)
}
