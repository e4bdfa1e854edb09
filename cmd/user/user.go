// Package user implements the account management commands.
package user

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/logger"
)

// Command creates the user command and its subcommands
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(addCommand(settings))
	return cmd
}

type addOptions struct {
	email    string
	name     string
	role     string
	password string
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		Long: "Create a user account. Without --password the password is read from the first line of standard input, " +
			"which keeps it out of the shell history.",
		Example: "  console-panel user add --email ada@example.com --name Ada --role admin",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, settings, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Login e-mail address")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (default: the part of the e-mail before @)")
	cmd.Flags().StringVar(&opts.role, "role", string(entities.RoleOperator), "Role: admin or operator")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (default: read from standard input)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runAdd(cmd *cobra.Command, settings *conf.Settings, opts addOptions) error {
	role := entities.Role(strings.ToLower(opts.role))
	if !role.Valid() {
		return fmt.Errorf("invalid role %q: must be admin or operator", opts.role)
	}

	password := opts.password
	if password == "" {
		cmd.PrintErr("Password: ")
		p, err := readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = p
	}

	name := opts.name
	if name == "" {
		name, _, _ = strings.Cut(opts.email, "@")
	}

	ctx := cmd.Context()
	log := logger.NewSlogLogger(cmd.ErrOrStderr(), logger.LogLevelError)
	store, err := datastore.Open(ctx, &settings.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	u, err := store.Users.Create(ctx, &entities.User{Email: opts.email, Name: name, Role: role}, password)
	if err != nil {
		return err
	}

	cmd.Printf("Created %s %s (id %d)\n", u.Role, u.Email, u.ID)
	return nil
}

// readLine returns the first line of r without the line terminator
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
