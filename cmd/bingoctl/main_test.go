package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/client"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		server  string
		wantErr bool
	}{
		{"http://localhost:8080", false},
		{"https://bingo.test", false},
		{"", true},
		{"localhost:8080", true},
	}
	for _, tt := range tests {
		err := (&Config{server: tt.server}).validate()
		assert.Equal(t, tt.wantErr, err != nil, tt.server)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newCmd(&Config{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLeave(t *testing.T) {
	state := filepath.Join(t.TempDir(), "session.json")
	s := &client.Session{DisplayName: "Rin"}
	s.Joined("table-1", time.Now())
	require.NoError(t, s.Save(state))

	_, err := run(t, "n\n", "--state-file", state, "leave")
	assert.EqualError(t, err, "aborted")
	loaded, err := client.LoadSession(state)
	require.NoError(t, err)
	assert.Equal(t, "table-1", loaded.TableID)

	_, err = run(t, "y\n", "--state-file", state, "leave")
	require.NoError(t, err)
	loaded, err = client.LoadSession(state)
	require.NoError(t, err)
	assert.Empty(t, loaded.TableID)
	assert.Equal(t, "Rin", loaded.DisplayName)

	out, err := run(t, "", "--state-file", state, "leave")
	require.NoError(t, err)
	assert.Contains(t, out, "not at a table")
}

func TestCommandsNeedTable(t *testing.T) {
	state := filepath.Join(t.TempDir(), "session.json")
	_, err := run(t, "", "--state-file", state, "--yes", "close")
	assert.ErrorContains(t, err, "no current table")
}
