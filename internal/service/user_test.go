package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
)

func TestUserService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("admin approves a pending account", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
		pending := makeUser("usr-pending", domain.RoleStudent)
		pending.Active = false
		env.addUser(t, pending)

		approved, err := env.users.Approve(ctx, admin, "usr-pending")
		require.NoError(t, err)
		assert.True(t, approved.Active)
		assert.Equal(t, admin.ID, approved.ApprovedBy)
		assert.False(t, approved.ApprovedAt.IsZero())
	})

	t.Run("approving an active account is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
		active := env.addUser(t, makeUser("usr-active", domain.RoleStudent))

		approved, err := env.users.Approve(ctx, admin, active.ID)
		require.NoError(t, err)
		assert.True(t, approved.Active)
		assert.Empty(t, approved.ApprovedBy)
	})

	t.Run("librarian cannot approve", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		_, err := env.users.Approve(ctx, librarian, "usr-any")
		assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	})

	t.Run("missing user", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))

		_, err := env.users.Approve(ctx, admin, "usr-ghost")
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})
}

func TestUserService_SetRole(t *testing.T) {
	ctx := context.Background()

	t.Run("admin promotes a student", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
		env.addUser(t, makeUser("usr-stu", domain.RoleStudent))

		user, err := env.users.SetRole(ctx, admin, "usr-stu", domain.RoleLibrarian)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleLibrarian, user.Role)
	})

	t.Run("admins cannot demote themselves", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))

		_, err := env.users.SetRole(ctx, admin, admin.ID, domain.RoleStudent)
		require.ErrorIs(t, err, domainerrors.ErrValidation)
		assert.Contains(t, err.Error(), "demote")
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
		env.addUser(t, makeUser("usr-stu", domain.RoleStudent))

		_, err := env.users.SetRole(ctx, admin, "usr-stu", domain.Role("superuser"))
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("non-admin refused", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		_, err := env.users.SetRole(ctx, librarian, "usr-any", domain.RoleLibrarian)
		assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	})
}

func TestUserService_Deactivate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
	env.addUser(t, makeUser("usr-stu", domain.RoleStudent))

	user, err := env.users.Deactivate(ctx, admin, "usr-stu")
	require.NoError(t, err)
	assert.False(t, user.Active)

	t.Run("admins cannot deactivate themselves", func(t *testing.T) {
		_, err := env.users.Deactivate(ctx, admin, admin.ID)
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
	env.addUser(t, makeUser("usr-stu", domain.RoleStudent))

	require.NoError(t, env.users.Delete(ctx, admin, "usr-stu"))

	_, err := env.users.Get(ctx, "usr-stu")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	t.Run("idempotent", func(t *testing.T) {
		assert.NoError(t, env.users.Delete(ctx, admin, "usr-stu"))
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		assert.ErrorIs(t, env.users.Delete(ctx, admin, admin.ID), domainerrors.ErrValidation)
	})
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"usr-a", "usr-b", "usr-c"} {
		u := makeUser(id, domain.RoleStudent)
		u.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		u.UpdatedAt = u.CreatedAt
		if id == "usr-b" {
			u.Active = false
		}
		env.addUser(t, u)
	}

	t.Run("newest first", func(t *testing.T) {
		users, err := env.users.List(ctx, false)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, "usr-c", users[0].ID)
	})

	t.Run("pending only", func(t *testing.T) {
		users, err := env.users.List(ctx, true)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "usr-b", users[0].ID)
	})
}

func TestUserService_ReadingPosition(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reader := env.addUser(t, makeUser("usr-reader", domain.RoleStudent))
	env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 5))

	require.NoError(t, env.users.SetReadingPosition(ctx, reader, "bk-1", 3))
	pos, ok := reader.Position("bk-1")
	require.True(t, ok)
	assert.Equal(t, 3, pos.PageIndex)

	t.Run("setting again replaces", func(t *testing.T) {
		require.NoError(t, env.users.SetReadingPosition(ctx, reader, "bk-1", 4))
		pos, _ := reader.Position("bk-1")
		assert.Equal(t, 4, pos.PageIndex)
		assert.Len(t, reader.Positions, 1)
	})

	t.Run("page zero is always valid", func(t *testing.T) {
		env.addBook(t, bookWithPages("bk-empty", "Empty", 0))
		assert.NoError(t, env.users.SetReadingPosition(ctx, reader, "bk-empty", 0))
	})

	t.Run("out of range", func(t *testing.T) {
		assert.ErrorIs(t, env.users.SetReadingPosition(ctx, reader, "bk-1", 5), domainerrors.ErrValidation)
		assert.ErrorIs(t, env.users.SetReadingPosition(ctx, reader, "bk-1", -1), domainerrors.ErrValidation)
	})

	t.Run("missing book", func(t *testing.T) {
		assert.ErrorIs(t, env.users.SetReadingPosition(ctx, reader, "bk-ghost", 0), domainerrors.ErrNotFound)
	})
}

func TestUserService_Bookmarks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reader := env.addUser(t, makeUser("usr-reader", domain.RoleStudent))
	env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 5))

	require.NoError(t, env.users.AddBookmark(ctx, reader, "bk-1", 2))
	require.Len(t, reader.Bookmarks, 1)

	t.Run("same page twice is a no-op", func(t *testing.T) {
		require.NoError(t, env.users.AddBookmark(ctx, reader, "bk-1", 2))
		assert.Len(t, reader.Bookmarks, 1)
	})

	t.Run("out of range page", func(t *testing.T) {
		assert.ErrorIs(t, env.users.AddBookmark(ctx, reader, "bk-1", 5), domainerrors.ErrValidation)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		require.NoError(t, env.users.RemoveBookmark(ctx, reader, "bk-1", 2))
		assert.Empty(t, reader.Bookmarks)
		assert.NoError(t, env.users.RemoveBookmark(ctx, reader, "bk-1", 2))
	})
}
