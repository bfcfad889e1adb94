package tools

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolManager(t *testing.T) {
	t.Setenv("ENABLE_TOOLS", "")
	assert.True(t, IsEnabled("query"))

	res, err := toolManagerHandler(map[string]interface{}{"action": "list"})
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "All tools are enabled")
	assert.Contains(t, text(t, res), "- network (Network import, merge, update and delete) [enabled]")

	res, err = toolManagerHandler(map[string]interface{}{"action": "disable", "tool_name": "query"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "tool_manager,network", os.Getenv("ENABLE_TOOLS"))
	assert.False(t, IsEnabled("query"))

	res, err = toolManagerHandler(map[string]interface{}{"action": "enable", "tool_name": "query"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.True(t, IsEnabled("query"))

	res, err = toolManagerHandler(map[string]interface{}{"action": "enable", "tool_name": "jira"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = toolManagerHandler(map[string]interface{}{"action": "enable"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = toolManagerHandler(map[string]interface{}{"action": "restart"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEquivalenceMethods(t *testing.T) {
	res, err := equivalenceMethodsHandler(nil)
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "JDEX_ID")
	assert.Contains(t, text(t, res), "IMPORT_ID")
}
