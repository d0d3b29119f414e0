package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

func TestNewWorkspaceRegistry(t *testing.T) {
	reg := model.NewWorkspaceRegistry()
	gt.Value(t, reg).NotNil()
	gt.Array(t, reg.List()).Length(0)
	gt.Array(t, reg.Workspaces()).Length(0)
}

func TestWorkspaceRegistry_RegisterMultiple(t *testing.T) {
	reg := model.NewWorkspaceRegistry()

	reg.Register(&model.WorkspaceEntry{
		Workspace: model.Workspace{ID: "iso27001", Name: "ISMS"},
	})
	reg.Register(&model.WorkspaceEntry{
		Workspace:      model.Workspace{ID: "iso9001", Name: "QMS"},
		SlackChannelID: "C0123",
	})

	gt.Array(t, reg.List()).Length(2)

	// Verify registration order is preserved
	workspaces := reg.Workspaces()
	gt.Value(t, workspaces[0].ID).Equal("iso27001")
	gt.Value(t, workspaces[1].ID).Equal("iso9001")
	gt.Bool(t, reg.Has("iso9001")).True()
	gt.Bool(t, reg.Has("iso14001")).False()
}

func TestWorkspaceRegistry_RegisterOverwrite(t *testing.T) {
	reg := model.NewWorkspaceRegistry()

	reg.Register(&model.WorkspaceEntry{
		Workspace: model.Workspace{ID: "iso27001", Name: "Old Name"},
	})
	reg.Register(&model.WorkspaceEntry{
		Workspace: model.Workspace{ID: "iso27001", Name: "New Name"},
	})

	// Should not duplicate the entry
	gt.Array(t, reg.List()).Length(1)
	gt.Value(t, reg.Workspaces()[0].Name).Equal("New Name")
}

func TestWorkspaceRegistry_Get(t *testing.T) {
	reg := model.NewWorkspaceRegistry()
	reg.Register(&model.WorkspaceEntry{
		Workspace:      model.Workspace{ID: "iso27001", Name: "ISMS"},
		SlackChannelID: "C0123",
	})

	t.Run("existing workspace", func(t *testing.T) {
		entry, err := reg.Get("iso27001")
		gt.NoError(t, err).Required()
		gt.Value(t, entry.SlackChannelID).Equal("C0123")
	})

	t.Run("missing workspace", func(t *testing.T) {
		_, err := reg.Get("unknown")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, model.ErrWorkspaceNotFound)).True()
	})
}
