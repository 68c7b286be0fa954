package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatRequest_MessageOrder(t *testing.T) {
	req := NewChatRequest("gpt-4", "Analyze the following data:", `{"key": "value"}`)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "Analyze the following data:"}, req.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: `{"key": "value"}`}, req.Messages[1])
}

func TestChatRequest_JSONShape(t *testing.T) {
	body, err := json.Marshal(NewChatRequest("gpt-4", "sys", "hi"))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"model":"gpt-4","messages":[{"role":"system","content":"sys"},{"role":"user","content":"hi"}]}`,
		string(body))
}
