package comm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeToastDismiss, ToastDismiss{ID: "t1-3"}, "sock-1")
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"toast-dismiss","data":{"id":"t1-3"},"socketid":"sock-1"}`, string(raw))

	_, err = NewMessage(TypeError, make(chan int), "")
	assert.Error(t, err)
}
