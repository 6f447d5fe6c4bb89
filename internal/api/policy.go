package api

import "github.com/openarklib/openark-server/internal/domain"

// operation names a protected API capability. Routes are gated by looking
// their operation up in the policy table rather than scattering role checks
// through handlers; the table below is the whole authorization story and
// doubles as its documentation.
type operation string

const (
	opBookRead         operation = "book.read"
	opBookListArchived operation = "book.list_archived"
	opBookPublish      operation = "book.publish"
	opBookAddPages     operation = "book.add_pages"
	opBookEditPage     operation = "book.edit_page"
	opBookEditDesc     operation = "book.edit_description"
	opBookArchive      operation = "book.archive"
	opBookRestore      operation = "book.restore"
	opBookDelete       operation = "book.delete"
	opBookPreviewOCR   operation = "book.preview_ocr"

	opCommentRead   operation = "comment.read"
	opCommentWrite  operation = "comment.write"
	opCommentDelete operation = "comment.delete"

	opSearch operation = "search"

	opProfileRead  operation = "profile.read"
	opProfileWrite operation = "profile.write"

	opUserList       operation = "user.list"
	opUserApprove    operation = "user.approve"
	opUserSetRole    operation = "user.set_role"
	opUserDeactivate operation = "user.deactivate"
	opUserDelete     operation = "user.delete"

	opActivityRead  operation = "activity.read"
	opActivityPrune operation = "activity.prune"

	opReportRead operation = "report.read"

	opBackupRead   operation = "backup.read"
	opBackupCreate operation = "backup.create"
)

// everyone is shorthand for all authenticated roles.
var everyone = []domain.Role{domain.RoleAdmin, domain.RoleLibrarian, domain.RoleStudent}

// policies maps each operation to the roles allowed to perform it.
// An operation missing from this table is denied to all roles.
var policies = map[operation][]domain.Role{
	opBookRead:         everyone,
	opBookListArchived: {domain.RoleAdmin, domain.RoleLibrarian},
	opBookPublish:      {domain.RoleLibrarian},
	opBookAddPages:     {domain.RoleLibrarian},
	opBookEditPage:     {domain.RoleLibrarian},
	opBookEditDesc:     {domain.RoleLibrarian},
	opBookArchive:      {domain.RoleAdmin, domain.RoleLibrarian},
	opBookRestore:      {domain.RoleAdmin, domain.RoleLibrarian},
	opBookDelete:       {domain.RoleAdmin, domain.RoleLibrarian},
	opBookPreviewOCR:   {domain.RoleLibrarian},

	opCommentRead: everyone,
	// Comment deletion is additionally restricted to the author in the
	// service; the table only decides who may attempt it.
	opCommentWrite:  everyone,
	opCommentDelete: everyone,

	opSearch: everyone,

	opProfileRead:  everyone,
	opProfileWrite: everyone,

	opUserList:       {domain.RoleAdmin},
	opUserApprove:    {domain.RoleAdmin},
	opUserSetRole:    {domain.RoleAdmin},
	opUserDeactivate: {domain.RoleAdmin},
	opUserDelete:     {domain.RoleAdmin},

	opActivityRead:  {domain.RoleAdmin, domain.RoleLibrarian},
	opActivityPrune: {domain.RoleAdmin},

	opReportRead: {domain.RoleAdmin},

	opBackupRead:   {domain.RoleAdmin},
	opBackupCreate: {domain.RoleAdmin},
}

// allowed reports whether the role may perform the operation.
func allowed(op operation, role domain.Role) bool {
	for _, r := range policies[op] {
		if r == role {
			return true
		}
	}
	return false
}
