package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadhanaschool/backend/core/user"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the new password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if err = cli.usrSvc.ResetPassword(cmd.Context(), user.PasswordReset{Email: email, Password: pwd}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "password of %s reset\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
