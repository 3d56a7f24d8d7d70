package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zx06/tokey/internal/app"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/provider"
)

// CredentialGetInput represents the input for the credential_get tool
type CredentialGetInput struct {
	Provider string `json:"provider" jsonschema:"Provider name"`
	Label    string `json:"label,omitempty" jsonschema:"Account label (defaults to the provider default account)"`
}

// AccountStatusInput represents the input for the account_status tool
type AccountStatusInput struct {
	Provider string `json:"provider,omitempty" jsonschema:"Provider name filter"`
	Label    string `json:"label,omitempty" jsonschema:"Account label filter"`
}

// ToolHandler manages MCP tools
type ToolHandler struct {
	app *app.App
}

// NewToolHandler creates a new tool handler
func NewToolHandler(a *app.App) *ToolHandler {
	return &ToolHandler{app: a}
}

func providerEnums() []any {
	names := provider.Names()
	enums := make([]any, len(names))
	for i, name := range names {
		enums[i] = name
	}
	return enums
}

// RegisterTools registers all tools with the MCP server
func (h *ToolHandler) RegisterTools(server *mcp.Server) {
	// credential_get with provider enum
	credentialGetSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"provider"},
		Properties: map[string]*jsonschema.Schema{
			"provider": {
				Type:        "string",
				Description: "Provider name",
				Enum:        providerEnums(),
			},
			"label": {
				Type:        "string",
				Description: "Account label (defaults to the provider default account)",
			},
		},
	}
	server.AddTool(&mcp.Tool{
		Name:        "credential_get",
		Description: "Get credentials for a stored account, refreshing stale credentials first",
		InputSchema: credentialGetSchema,
	}, h.credentialGetHandler)

	// account_list
	mcp.AddTool[struct{}, any](server, &mcp.Tool{
		Name:        "account_list",
		Description: "List all stored accounts",
	}, h.AccountList)

	// account_status with provider enum
	accountStatusSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"provider": {
				Type:        "string",
				Description: "Provider name filter",
				Enum:        providerEnums(),
			},
			"label": {
				Type:        "string",
				Description: "Account label filter",
			},
		},
	}
	server.AddTool(&mcp.Tool{
		Name:        "account_status",
		Description: "Show freshness and refresh history for stored accounts",
		InputSchema: accountStatusSchema,
	}, h.accountStatusHandler)
}

// credentialGetHandler is the raw handler for credential_get tool
func (h *ToolHandler) credentialGetHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CredentialGetInput
	if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
		return errorResult(errors.Wrap(errors.CodeCfgInvalid, "invalid input", nil, err)), nil
	}
	result, _, err := h.CredentialGet(ctx, req, input)
	return result, err
}

// accountStatusHandler is the raw handler for account_status tool
func (h *ToolHandler) accountStatusHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input AccountStatusInput
	if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
		return errorResult(errors.Wrap(errors.CodeCfgInvalid, "invalid input", nil, err)), nil
	}
	result, _, err := h.AccountStatus(ctx, req, input)
	return result, err
}

// CredentialGet returns credentials for an account
func (h *ToolHandler) CredentialGet(ctx context.Context, req *mcp.CallToolRequest, input CredentialGetInput) (*mcp.CallToolResult, any, error) {
	if input.Provider == "" {
		return errorResult(errors.New(errors.CodeCfgInvalid, "provider is required", nil)), nil, nil
	}

	res, te := h.app.Get(ctx, input.Provider, input.Label)
	if te != nil {
		return errorResult(te), nil, nil
	}

	data := map[string]any{
		"provider": res.Provider,
		"label":    res.Label,
		"fields":   res.Fields,
		"stale":    res.Stale,
	}
	if res.Warning != nil {
		data["warning"] = map[string]any{
			"code":    res.Warning.Code,
			"message": res.Warning.Message,
		}
	}
	return okResult(data), nil, nil
}

// AccountList lists all stored accounts
func (h *ToolHandler) AccountList(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	rows, te := h.app.List("")
	if te != nil {
		return errorResult(te), nil, nil
	}
	return okResult(map[string]any{"accounts": rows}), nil, nil
}

// AccountStatus shows account freshness details
func (h *ToolHandler) AccountStatus(ctx context.Context, req *mcp.CallToolRequest, input AccountStatusInput) (*mcp.CallToolResult, any, error) {
	rows, te := h.app.Status(input.Provider, input.Label)
	if te != nil {
		return errorResult(te), nil, nil
	}
	return okResult(map[string]any{"accounts": rows}), nil, nil
}

// okResult wraps data in the standard envelope
func okResult(data any) *mcp.CallToolResult {
	output := map[string]any{
		"ok":             true,
		"schema_version": 1,
		"data":           data,
	}
	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return errorResult(errors.Wrap(errors.CodeInternal, "failed to marshal result", nil, err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonData)},
		},
	}
}

// errorResult formats an error as JSON tool output
func errorResult(err error) *mcp.CallToolResult {
	var te *errors.TError
	if err != nil {
		te = errors.AsOrWrap(err)
	} else {
		te = errors.New(errors.CodeInternal, "unknown error", nil)
	}
	output := map[string]any{
		"ok":             false,
		"schema_version": 1,
		"error": map[string]any{
			"code":    te.Code,
			"message": te.Message,
			"details": te.Details,
		},
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonData)},
		},
	}
}

// CreateServer creates a new MCP server
func CreateServer(version string, a *app.App) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tokey",
		Version: version,
	}, nil)

	handler := NewToolHandler(a)
	handler.RegisterTools(server)

	return server, nil
}
