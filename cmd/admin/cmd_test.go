package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

type adminCreatorStub struct {
	name, email, password string
	err                   error
}

func (s *adminCreatorStub) Create(_ context.Context, name, email, password string) (*models.Admin, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.name, s.email, s.password = name, email, password
	return &models.Admin{ID: "a1", Name: name, Email: email}, nil
}

func setup(pwd string) (*commandLine, *adminCreatorStub, *[]string, *bytes.Buffer) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	admins := &adminCreatorStub{}
	var migrations []string
	out := &bytes.Buffer{}
	cli := &commandLine{
		admins: admins,
		migrate: func(command string, args ...string) error {
			migrations = append(migrations, command)
			return nil
		},
		out: out,
	}
	return cli, admins, &migrations, out
}

func TestCommandLineUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command"},
		{name: "unknown command", args: []string{"lol"}},
		{name: "migrate without direction", args: []string{"migrate"}},
		{name: "create-admin without flags", args: []string{"create-admin"}},
		{name: "create-admin without name", args: []string{"create-admin", "-email", "root@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, admins, _, _ := setup("correct-horse")
			err := cli.run(context.Background(), append([]string{"admin"}, tt.args...))
			assert.ErrorIs(t, err, errHelp)
			assert.Empty(t, admins.email)
		})
	}
}

func TestCommandLineMigrate(t *testing.T) {
	cli, _, migrations, out := setup("")

	require.NoError(t, cli.run(context.Background(), []string{"admin", "migrate", "up"}))
	assert.Equal(t, []string{"up"}, *migrations)
	assert.Contains(t, out.String(), "migrate up: done")
}

func TestCommandLineCreateAdmin(t *testing.T) {
	cli, admins, _, out := setup("correct-horse")

	err := cli.run(context.Background(), []string{"admin", "create-admin", "-email", "root@example.com", "-name", "Root"})
	require.NoError(t, err)
	assert.Equal(t, "Root", admins.name)
	assert.Equal(t, "root@example.com", admins.email)
	assert.Equal(t, "correct-horse", admins.password)
	assert.Contains(t, out.String(), "admin root@example.com created (a1)")
}

func TestCommandLineCreateAdminRejectsShortPassword(t *testing.T) {
	cli, admins, _, _ := setup("short")

	err := cli.run(context.Background(), []string{"admin", "create-admin", "-email", "root@example.com", "-name", "Root"})
	require.Error(t, err)
	assert.Empty(t, admins.email)
}

func TestCommandLineCreateAdminPropagatesFailure(t *testing.T) {
	cli, admins, _, _ := setup("correct-horse")
	admins.err = errors.New("conflict")

	err := cli.run(context.Background(), []string{"admin", "create-admin", "-email", "root@example.com", "-name", "Root"})
	assert.EqualError(t, err, "conflict")
}
