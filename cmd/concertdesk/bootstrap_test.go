package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"concertdesk/internal/config"
	"concertdesk/internal/logging"
	"concertdesk/internal/models"
	"concertdesk/internal/store"
)

type fakeAdminStore struct {
	admins    int
	createErr error
	created   []string
}

func (f *fakeAdminStore) CountAdmins(context.Context) (int, error) {
	return f.admins, nil
}

func (f *fakeAdminStore) CreateUser(_ context.Context, email, _ string, role string) (models.User, error) {
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	f.created = append(f.created, email+":"+role)
	return models.User{ID: 1, Email: email, Role: models.RoleFromStored(role)}, nil
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	creds := config.BootstrapConfig{AdminEmail: "boss@example.com", AdminPassword: "secret1"}

	t.Run("creates first admin", func(t *testing.T) {
		st := &fakeAdminStore{}
		require.NoError(t, ensureAdmin(ctx, creds, st, logging.Nop()))
		require.Equal(t, []string{"boss@example.com:admin"}, st.created)
	})

	t.Run("skips when an admin exists", func(t *testing.T) {
		st := &fakeAdminStore{admins: 1}
		require.NoError(t, ensureAdmin(ctx, creds, st, logging.Nop()))
		require.Empty(t, st.created)
	})

	t.Run("skips without credentials", func(t *testing.T) {
		st := &fakeAdminStore{}
		require.NoError(t, ensureAdmin(ctx, config.BootstrapConfig{}, st, logging.Nop()))
		require.Empty(t, st.created)
	})

	t.Run("tolerates existing email", func(t *testing.T) {
		st := &fakeAdminStore{createErr: store.ErrUserExists}
		require.NoError(t, ensureAdmin(ctx, creds, st, logging.Nop()))
	})

	t.Run("rejects weak password", func(t *testing.T) {
		st := &fakeAdminStore{}
		err := ensureAdmin(ctx, config.BootstrapConfig{AdminEmail: "boss@example.com", AdminPassword: "123"}, st, logging.Nop())
		require.Error(t, err)
		require.Empty(t, st.created)
	})
}
