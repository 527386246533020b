package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadhanaschool/backend/core/user"
)

// addUserCmd creates an active admin, or promotes and reactivates the account with that email.
func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update an active admin account; the password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			usr, err := cli.usrSvc.SaveAdmin(cmd.Context(), name, user.PasswordReset{Email: email, Password: pwd})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "admin %s (%s) saved\n", usr.Email, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The admin's email")
	cmd.Flags().StringVar(&name, "name", "", "The admin's name (default \"Admin\" for new accounts)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
