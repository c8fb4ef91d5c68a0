package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/fnfsettings/internal/settings"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	return MCPDeps{Settings: newTestService(t), Version: "test"}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "no content in result")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	require.NotNil(t, NewMCPServer(newTestMCPDeps(t)))
	require.NotNil(t, NewMCPServer(MCPDeps{Settings: newTestService(t)}))
}

func TestMCPTool_GetSetting(t *testing.T) {
	deps := newTestMCPDeps(t)

	result, err := mcpGetSetting(deps)(context.Background(), makeCallToolRequest("get_setting", map[string]interface{}{
		"key": "accentColor",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))
	assert.Equal(t, `"#FF0088"`, toolText(t, result))
}

func TestMCPTool_GetSetting_Errors(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpGetSetting(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_setting", map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handler(context.Background(), makeCallToolRequest("get_setting", map[string]interface{}{"key": "volume"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "unknown setting")
}

func TestMCPTool_SaveSettingParsesBool(t *testing.T) {
	deps := newTestMCPDeps(t)

	result, err := mcpSaveSetting(deps)(context.Background(), makeCallToolRequest("save_setting", map[string]interface{}{
		"key":   "showTerminalOutput",
		"value": "false",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))
	assert.Equal(t, false, deps.Settings.GetSetting(context.Background(), settings.KeyShowTerminalOutput))
}

func TestMCPTool_SaveSetting_Invalid(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpSaveSetting(deps)

	result, err := handler(context.Background(), makeCallToolRequest("save_setting", map[string]interface{}{
		"key": "useSystemTheme", "value": "maybe",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handler(context.Background(), makeCallToolRequest("save_setting", map[string]interface{}{
		"key": "volume", "value": "11",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPTool_SaveSettings(t *testing.T) {
	deps := newTestMCPDeps(t)

	result, err := mcpSaveSettings(deps)(context.Background(), makeCallToolRequest("save_settings", map[string]interface{}{
		"settings": `{"theme":"light","installLocation":"/games/fnf"}`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))
	assert.Equal(t, "Saved 2 settings", toolText(t, result))

	all := deps.Settings.GetAllSettings(context.Background())
	assert.Equal(t, "light", all.Theme)
	assert.Equal(t, "/games/fnf", all.InstallLocation)
}

func TestMCPTool_SaveSettings_Invalid(t *testing.T) {
	deps := newTestMCPDeps(t)

	result, err := mcpSaveSettings(deps)(context.Background(), makeCallToolRequest("save_settings", map[string]interface{}{
		"settings": `{"theme":"light","volume":3}`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "dark", deps.Settings.GetSetting(context.Background(), settings.KeyTheme))
}

func TestMCPTool_ListAndClear(t *testing.T) {
	deps := newTestMCPDeps(t)
	ctx := context.Background()
	require.NoError(t, deps.Settings.SaveSetting(ctx, settings.KeyTheme, "light"))

	result, err := mcpListSettings(deps)(ctx, makeCallToolRequest("list_settings", nil))
	require.NoError(t, err)
	var got settings.Settings
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &got))
	assert.Equal(t, "light", got.Theme)

	result, err = mcpClearSettings(deps)(ctx, makeCallToolRequest("clear_settings", map[string]interface{}{"confirm": false}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "light", deps.Settings.GetSetting(ctx, settings.KeyTheme))

	result, err = mcpClearSettings(deps)(ctx, makeCallToolRequest("clear_settings", map[string]interface{}{"confirm": true}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))
	assert.Equal(t, "dark", deps.Settings.GetSetting(ctx, settings.KeyTheme))
}

func TestMCPTool_WriteFailureIsToolError(t *testing.T) {
	deps := MCPDeps{Settings: failingService()}

	result, err := mcpSaveSetting(deps)(context.Background(), makeCallToolRequest("save_setting", map[string]interface{}{
		"key": "theme", "value": "light",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "failed to save setting")
}

func TestMCPResource_Settings(t *testing.T) {
	deps := newTestMCPDeps(t)
	ctx := context.Background()
	require.NoError(t, deps.Settings.SaveSetting(ctx, settings.KeyCustomCSS, "a{}"))

	handler := mcpResourceSettings(deps.Settings.GetAllSettings)
	contents, err := handler(ctx, makeReadResourceRequest("settings://current"))
	require.NoError(t, err)
	require.Len(t, contents, 1)

	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "settings://current", tc.URI)
	assert.Equal(t, "application/json", tc.MIMEType)

	var got settings.Settings
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &got))
	assert.Equal(t, "a{}", got.CustomCSS)
}
