package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// AdminRegistrar creates admin accounts.
type AdminRegistrar interface {
	RegisterAdmin(ctx context.Context, actor shared.Actor, req auth.AdminRegisterRequest) (*auth.Session, error)
}

// operator is the actor recorded for accounts created from the command line.
var operator = shared.Actor{Subject: "campus-cli", Kind: shared.KindAdmin, Role: shared.RoleSuperAdmin}

// CreateAdminOptions defines the flags of the create-admin command.
type CreateAdminOptions struct {
	Name       string
	Username   string
	Email      string
	Department string
	Role       string
	// Password is read from PasswordInput when empty.
	Password      string
	PasswordInput io.Reader
	Stdout        io.Writer
	Stderr        io.Writer
}

// CreateAdminCommand provisions an admin account, typically the first super
// admin of a fresh installation. It returns a process exit code.
func CreateAdminCommand(ctx context.Context, registrar AdminRegistrar, opts CreateAdminOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	password := opts.Password
	if password == "" && opts.PasswordInput != nil {
		raw, err := io.ReadAll(io.LimitReader(opts.PasswordInput, 4096))
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "create-admin: read password: %v\n", err)
			return 1
		}
		password = strings.TrimRight(string(raw), "\r\n")
	}
	role := strings.ToUpper(strings.TrimSpace(opts.Role))
	if role == "" {
		role = string(shared.RoleSuperAdmin)
	}

	_, err := registrar.RegisterAdmin(ctx, operator, auth.AdminRegisterRequest{
		Name:       opts.Name,
		Username:   opts.Username,
		Email:      opts.Email,
		Password:   password,
		Department: opts.Department,
		Role:       shared.Role(role),
	})
	if err != nil {
		var fields shared.FieldErrors
		if errors.As(err, &fields) {
			for _, field := range slices.Sorted(maps.Keys(fields)) {
				_, _ = fmt.Fprintf(opts.Stderr, "create-admin: %s %s\n", field, fields[field])
			}
			return 2
		}
		_, _ = fmt.Fprintf(opts.Stderr, "create-admin: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "admin %s created with role %s\n", shared.NormalizeIdentifier(opts.Username), role)
	return 0
}
