package enums

import "fmt"

type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleCustomer || r == UserRoleAdmin
}

func ParseUserRole(value string) (UserRole, error) {
	r := UserRole(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid user role %q", value)
	}
	return r, nil
}
