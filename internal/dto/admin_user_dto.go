package dto

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// UserListRequest defines filters for listing registry users.
type UserListRequest struct {
	Page     int
	PageSize int
	Search   string
	Role     string
	Status   string
}

// UserListResponse wraps a paginated user listing.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// CreateUserRequest adds one identity to the registry. Password is required
// for staff roles and rejected for reader roles.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=2,max=255"`
	Role        string `json:"role" validate:"required,oneof=admin editor teacher student guardian"`
	Password    string `json:"password"`
}

// UpdateUserRequest patches mutable identity fields.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=2,max=255"`
	Role        *string `json:"role" validate:"omitempty,oneof=admin editor teacher student guardian"`
}

// ToggleUserStatusResponse reports the status after a pause/resume flip.
type ToggleUserStatusResponse struct {
	ID     uint `json:"id"`
	Active bool `json:"active"`
}

// BulkCreateUsersRequest creates multiple reader identities in one call.
type BulkCreateUsersRequest struct {
	Users []CreateUserRequest `json:"users"`
}

// BulkCreateOutcome reports the result for one row of a bulk creation.
type BulkCreateOutcome struct {
	Email   string `json:"email"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// BulkCreateUsersResponse summarises a bulk creation.
type BulkCreateUsersResponse struct {
	Created  int                 `json:"created"`
	Failed   int                 `json:"failed"`
	Outcomes []BulkCreateOutcome `json:"outcomes"`
}
