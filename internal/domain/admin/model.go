package admin

import (
	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/pkg/pagination"
)

// UserPage is one page of a user listing.
type UserPage struct {
	Message     string           `json:"message"`
	Data        []*identity.User `json:"data"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int              `json:"totalPages"`
	TotalItems  int              `json:"totalItems"`
}

func newUserPage(msg string, users []*identity.User, total int, p pagination.Params) *UserPage {
	if users == nil {
		users = []*identity.User{}
	}
	return &UserPage{
		Message:     msg,
		Data:        users,
		CurrentPage: p.Page,
		TotalPages:  pagination.TotalPages(total, p.PageSize),
		TotalItems:  total,
	}
}
