package authorize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WantedChef/chefchat/internal/mode"
	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/tool"
)

type fakeTool struct {
	name       string
	permission tool.Permission
}

func (f *fakeTool) Name() string                      { return f.name }
func (f *fakeTool) Definition() models.ToolDefinition { return models.ToolDefinition{Name: f.name} }
func (f *fakeTool) Execute(context.Context, map[string]any) (*tool.Result, error) {
	return &tool.Result{Content: "ok"}, nil
}
func (f *fakeTool) Permission(map[string]any) tool.Permission { return f.permission }

func newAuthorizer(t *testing.T, m mode.Mode) (*Authorizer, *mode.Manager) {
	t.Helper()
	mgr, err := mode.NewManager(m)
	require.NoError(t, err)
	return New(mgr), mgr
}

func classifierTool(name string, p tool.Permission) tool.Tool {
	return &fakeTool{name: name, permission: p}
}

func TestDecide(t *testing.T) {
	t.Run("NormalModeAsksForUnclassifiedTool", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModeNormal)
		d := a.Decide(&unclassifiedTool{name: "write_file"}, nil)
		assert.Equal(t, ActionAwaitApproval, d.Action)
	})

	t.Run("AlwaysPermissionExecutes", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModeNormal)
		d := a.Decide(classifierTool("read_file", tool.PermissionAlways), nil)
		assert.Equal(t, ActionExecute, d.Action)
	})

	t.Run("NeverPermissionSkips", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModeNormal)
		d := a.Decide(classifierTool("bash", tool.PermissionNever), nil)
		assert.Equal(t, ActionSkip, d.Action)
		assert.Contains(t, d.Reason, "denied")
	})

	t.Run("AutoModeApprovesAsk", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModeAuto)
		d := a.Decide(classifierTool("bash", tool.PermissionAsk), nil)
		assert.Equal(t, ActionExecute, d.Action)
	})

	t.Run("SessionGrantApprovesAsk", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModeNormal)
		a.RememberAlways("bash")
		d := a.Decide(classifierTool("bash", tool.PermissionAsk), nil)
		assert.Equal(t, ActionExecute, d.Action)

		a.Forget()
		d = a.Decide(classifierTool("bash", tool.PermissionAsk), nil)
		assert.Equal(t, ActionAwaitApproval, d.Action)
	})

	t.Run("PlanModeBlocksWritesBeforeAnyApproval", func(t *testing.T) {
		a, mgr := newAuthorizer(t, mode.ModePlan)
		// Even a forced auto-approve flag cannot override the block.
		mgr.SetAutoApprove(true)
		a.RememberAlways("write_file")

		d := a.Decide(classifierTool("write_file", tool.PermissionAlways), nil)
		assert.Equal(t, ActionSkip, d.Action)
		assert.Contains(t, d.Reason, "blocked")
		assert.Contains(t, strings.ToUpper(d.Reason), "PLAN")
	})

	t.Run("PlanModeAllowsReads", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModePlan)
		d := a.Decide(classifierTool("read_file", tool.PermissionAlways), nil)
		assert.Equal(t, ActionExecute, d.Action)
	})

	t.Run("PlanModeBlocksWriteBashCommands", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModePlan)
		d := a.Decide(classifierTool("bash", tool.PermissionAsk), map[string]any{
			"command": "rm -r build",
		})
		assert.Equal(t, ActionSkip, d.Action)
		assert.Contains(t, d.Reason, "blocked")
	})

	t.Run("YoloModeApprovesEverythingNotBlocked", func(t *testing.T) {
		a, _ := newAuthorizer(t, mode.ModeYolo)
		d := a.Decide(classifierTool("bash", tool.PermissionAsk), map[string]any{
			"command": "rm -r build",
		})
		assert.Equal(t, ActionExecute, d.Action)
	})
}

// unclassifiedTool implements tool.Tool but not tool.Classifier.
type unclassifiedTool struct {
	name string
}

func (u *unclassifiedTool) Name() string { return u.name }
func (u *unclassifiedTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{Name: u.name}
}
func (u *unclassifiedTool) Execute(context.Context, map[string]any) (*tool.Result, error) {
	return &tool.Result{Content: "ok"}, nil
}
