package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/fnfsettings/internal/settings"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Settings *settings.Service
	Version  string
}

// NewMCPServer creates an MCP server with the settings tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"fnfsettings",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("fnfsettings: read and change the FNF mod launcher settings (accent color, install location, theme, mod validation, terminal output)."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_setting",
			mcp.WithDescription("Return the current value of one setting, or its default when unset."),
			mcp.WithString("key", mcp.Description("Setting key (e.g. theme, accentColor)"), mcp.Required()),
		),
		mcpGetSetting(deps),
	)

	s.AddTool(
		mcp.NewTool("list_settings",
			mcp.WithDescription("Return every setting as a JSON object with defaults filled in."),
		),
		mcpListSettings(deps),
	)

	s.AddTool(
		mcp.NewTool("save_setting",
			mcp.WithDescription("Persist one setting. Boolean settings accept true or false."),
			mcp.WithString("key", mcp.Description("Setting key"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
		),
		mcpSaveSetting(deps),
	)

	s.AddTool(
		mcp.NewTool("save_settings",
			mcp.WithDescription("Persist several settings from a JSON object. Keys are written in order; a failure leaves earlier keys saved."),
			mcp.WithString("settings", mcp.Description(`JSON object, e.g. {"theme":"light","useSystemTheme":false}`), mcp.Required()),
		),
		mcpSaveSettings(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_settings",
			mcp.WithDescription("Remove every saved setting so all keys return to their defaults."),
			mcp.WithBoolean("confirm", mcp.Description("Must be true"), mcp.Required()),
		),
		mcpClearSettings(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"settings://current",
			"Current Settings",
			mcp.WithResourceDescription("Current settings with defaults filled in"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSettings(func(ctx context.Context) settings.Settings {
			return deps.Settings.GetAllSettings(ctx)
		}),
	)

	s.AddResource(
		mcp.NewResource(
			"settings://defaults",
			"Default Settings",
			mcp.WithResourceDescription("Built-in default for every setting"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSettings(func(context.Context) settings.Settings {
			return settings.Defaults()
		}),
	)

	return s
}

func mcpGetSetting(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		key, ok := settings.LookupKey(name)
		if !ok {
			return mcpError(fmt.Sprintf("unknown setting %q", name)), nil
		}

		b, err := json.Marshal(deps.Settings.GetSetting(ctx, key))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal value: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListSettings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Settings.GetAllSettings(ctx))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal settings: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSaveSetting(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		raw, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		value, err := settings.ParseValue(settings.Key(name), raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if err := deps.Settings.SaveSetting(ctx, settings.Key(name), value); err != nil {
			return mcpError(fmt.Sprintf("failed to save setting: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %v", name, value)), nil
	}
}

func mcpSaveSettings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("settings")
		if err != nil {
			return mcpError("settings is required"), nil
		}

		p, err := settings.ParsePatch([]byte(raw))
		if err != nil {
			return mcpError(fmt.Sprintf("invalid settings: %v", err)), nil
		}
		if err := deps.Settings.SaveSettings(ctx, p); err != nil {
			return mcpError(fmt.Sprintf("failed to save settings: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Saved %d settings", len(p))), nil
	}
}

func mcpClearSettings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !req.GetBool("confirm", false) {
			return mcpError("confirm must be true to clear settings"), nil
		}
		if err := deps.Settings.ClearSettings(ctx); err != nil {
			return mcpError(fmt.Sprintf("failed to clear settings: %v", err)), nil
		}
		return mcpText("All settings reset to defaults"), nil
	}
}

func mcpResourceSettings(read func(context.Context) settings.Settings) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(read(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
