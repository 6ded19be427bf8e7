package rbac

import "errors"

var (
	// ErrUnknownRole is returned when a role name is not one of admin, it, user
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownPermission is returned when a permission tag is not recognized
	ErrUnknownPermission = errors.New("unknown permission")
)
