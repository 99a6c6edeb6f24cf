package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	client := domain.Viewer{Role: domain.RoleClient, ID: 5}
	freelancer := domain.Viewer{Role: domain.RoleFreelancer, ID: 9}

	tests := []struct {
		name   string
		viewer domain.Viewer
		action domain.Action
		want   string
	}{
		{"client starts", client, domain.ActionConversationStart, DecisionAllow},
		{"freelancer starts", freelancer, domain.ActionConversationStart, DecisionDeny},
		{"client lists", client, domain.ActionConversationList, DecisionAllow},
		{"freelancer lists", freelancer, domain.ActionConversationList, DecisionAllow},
		{"freelancer sends", freelancer, domain.ActionMessageSend, DecisionAllow},
		{"client auto reply", client, domain.ActionMessageAutoReply, DecisionAllow},
		{"freelancer drains roles", freelancer, domain.ActionRolesDrain, DecisionAllow},
		{"unknown action", client, domain.Action("admin.wipe"), DecisionDeny},
		{"unknown role", domain.Viewer{Role: "admin", ID: 1}, domain.ActionConversationList, DecisionDeny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tt.viewer, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	ok, err := engine.Allowed(ctx, domain.Viewer{Role: domain.RoleFreelancer, ID: 1}, domain.ActionConversationStart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n decision = {")
	assert.Error(t, err)
}
