package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openarklib/openark-server/internal/domain"
)

func TestPolicy_UnknownOperationDeniedToAll(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleLibrarian, domain.RoleStudent} {
		assert.False(t, allowed(operation("made.up"), role), "role %s", role)
	}
}

func TestPolicy_EveryoneOperations(t *testing.T) {
	ops := []operation{
		opBookRead, opCommentRead, opCommentWrite, opCommentDelete,
		opSearch, opProfileRead, opProfileWrite,
	}
	for _, op := range ops {
		for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleLibrarian, domain.RoleStudent} {
			assert.True(t, allowed(op, role), "op %s role %s", op, role)
		}
	}
}

func TestPolicy_LibrarianOnlyMutations(t *testing.T) {
	ops := []operation{
		opBookPublish, opBookAddPages, opBookEditPage, opBookEditDesc,
		opBookPreviewOCR,
	}
	for _, op := range ops {
		assert.True(t, allowed(op, domain.RoleLibrarian), "op %s", op)
		// Content creation belongs to librarians alone; admins administer
		// people and clean up the catalog, they don't write into it.
		assert.False(t, allowed(op, domain.RoleAdmin), "op %s", op)
		assert.False(t, allowed(op, domain.RoleStudent), "op %s", op)
	}
}

func TestPolicy_AdminOnlyOperations(t *testing.T) {
	ops := []operation{
		opUserList, opUserApprove, opUserSetRole, opUserDeactivate, opUserDelete,
		opActivityPrune, opReportRead, opBackupRead, opBackupCreate,
	}
	for _, op := range ops {
		assert.True(t, allowed(op, domain.RoleAdmin), "op %s", op)
		assert.False(t, allowed(op, domain.RoleLibrarian), "op %s", op)
		assert.False(t, allowed(op, domain.RoleStudent), "op %s", op)
	}
}

func TestPolicy_SharedStaffOperations(t *testing.T) {
	ops := []operation{
		opBookListArchived, opActivityRead,
		// The archive lifecycle and deletion are curation, open to both
		// librarians and admins.
		opBookArchive, opBookRestore, opBookDelete,
	}
	for _, op := range ops {
		assert.True(t, allowed(op, domain.RoleAdmin), "op %s", op)
		assert.True(t, allowed(op, domain.RoleLibrarian), "op %s", op)
		assert.False(t, allowed(op, domain.RoleStudent), "op %s", op)
	}
}

func TestPolicy_UnknownRoleDenied(t *testing.T) {
	assert.False(t, allowed(opBookRead, domain.Role("superuser")))
	assert.False(t, allowed(opBookRead, domain.Role("")))
}
