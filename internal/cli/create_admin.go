package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minAdminPassword = 6

// AdminCreator stores an admin account.
type AdminCreator interface {
	Create(ctx context.Context, a *model.Admin) error
}

// AdminInput is what create-admin collects before writing.
type AdminInput struct {
	Name     string
	Email    string
	Role     model.AdminRole
	Password string
}

// Validate checks the collected fields.
func (in AdminInput) Validate() error {
	switch {
	case in.Name == "":
		return errors.New("name is required")
	case !strings.Contains(in.Email, "@"):
		return errors.New("a valid email is required")
	case !in.Role.Valid():
		return fmt.Errorf("role must be %q or %q", model.AdminRoleAdmin, model.AdminRoleTeacher)
	case len(in.Password) < minAdminPassword:
		return fmt.Errorf("password must be at least %d characters", minAdminPassword)
	}
	return nil
}

// CreateAdmin hashes the password and stores the account. An existing email
// is updated in place.
func CreateAdmin(ctx context.Context, store AdminCreator, in AdminInput, bcryptCost int) (*model.Admin, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &model.Admin{
		Name:         in.Name,
		Email:        strings.ToLower(in.Email),
		Role:         in.Role,
		PasswordHash: string(hash),
	}
	if err := store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return a, nil
}

// NewCreateAdminCmd builds the standalone create-admin command.
func NewCreateAdminCmd() *cobra.Command {
	return newCreateAdminCmd(newEnv())
}

func newCreateAdminCmd(e *env) *cobra.Command {
	var in AdminInput
	var role string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or update an admin or teacher account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer e.close()

			in.Role = model.AdminRole(role)
			if err := promptAdmin(cmd.InOrStdin(), cmd.OutOrStdout(), &in); err != nil {
				return err
			}

			pool, err := e.postgres(cmd.Context())
			if err != nil {
				return err
			}
			a, err := CreateAdmin(cmd.Context(), repository.NewAdminRepository(pool), in, e.cfg.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSuccess! %s '%s' (%s) saved with ID: %d\n", a.Role, a.Name, a.Email, a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", string(model.AdminRoleAdmin), "Admin or Teacher")
	return cmd
}

// promptAdmin asks for whatever the flags left empty. The password is read
// without echo when stdin is a terminal.
func promptAdmin(in io.Reader, out io.Writer, a *AdminInput) error {
	reader := bufio.NewReader(in)
	ask := func(label string, dst *string) error {
		if *dst != "" {
			return nil
		}
		fmt.Fprintf(out, "Enter %s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*dst = strings.TrimSpace(line)
		return nil
	}

	if err := ask("Name", &a.Name); err != nil {
		return err
	}
	if err := ask("Email", &a.Email); err != nil {
		return err
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Enter Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		a.Password = string(b)
		return nil
	}
	return ask("Password", &a.Password)
}
