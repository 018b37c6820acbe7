package controller

import (
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// CommandType names a user intent.
type CommandType string

const (
	CmdReload          CommandType = "reload"
	CmdCreateLink      CommandType = "createLink"
	CmdUpdateLink      CommandType = "updateLink"
	CmdDeleteLink      CommandType = "deleteLink"
	CmdBulkDelete      CommandType = "bulkDelete"
	CmdSetCredential   CommandType = "setCredential"
	CmdClearCredential CommandType = "clearCredential"
	CmdSetFilter       CommandType = "setFilter"
	CmdToggleFilter    CommandType = "toggleFilter"
	CmdClearFilter     CommandType = "clearFilter"
	CmdSetSort         CommandType = "setSort"
	CmdChangePage      CommandType = "changePage"
	CmdBeginEdit       CommandType = "beginEdit"
	CmdEditDraft       CommandType = "editDraft"
	CmdCancelEdit      CommandType = "cancelEdit"
	CmdSaveEdit        CommandType = "saveEdit"
	CmdCapture         CommandType = "capture"
)

// mutates reports whether a successful t changed the remote collection.
func (t CommandType) mutates() bool {
	switch t {
	case CmdCreateLink, CmdUpdateLink, CmdDeleteLink, CmdBulkDelete, CmdSaveEdit, CmdCapture:
		return true
	}
	return false
}

// Command is one user intent. Only the fields its Type needs are read.
type Command struct {
	Type CommandType `json:"type"`

	// ID targets updateLink, deleteLink and the edit commands.
	ID int64 `json:"id,omitempty"`
	// IDs targets bulkDelete.
	IDs []int64 `json:"ids,omitempty"`

	Draft *domain.Draft `json:"draft,omitempty"`
	Patch *domain.Patch `json:"patch,omitempty"`

	// TagInput is comma separated tag text merged into the draft tags
	// of createLink and capture.
	TagInput string `json:"tagInput,omitempty"`

	APIKey string `json:"apiKey,omitempty"`

	// Tags replaces the active filters (setFilter); Tag toggles one.
	Tags []string `json:"tags,omitempty"`
	Tag  string   `json:"tag,omitempty"`

	Sort string `json:"sort,omitempty"`
	Page int    `json:"page,omitempty"`

	// Capture fields. Title overrides the scraped title.
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	Notes         string `json:"notes,omitempty"`
	BypassPaywall bool   `json:"bypassPaywall,omitempty"`
}
