// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamerwiselen/lost-tracker/models"
)

func newUserCmd(opts *options) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var req models.CreateUserRequest
	addCmd := &cobra.Command{
		Use:   "add LOGIN",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Login = args[0]
			if req.Name == "" {
				req.Name = req.Login
			}

			t, closeDB, err := opts.tracker()
			if err != nil {
				return err
			}
			defer closeDB()

			u, err := t.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, roles %v)\n", u.Login, u.ID, u.Roles)
			return nil
		},
	}
	addCmd.Flags().StringVar(&req.Name, "name", "", "Display name (default: login)")
	addCmd.Flags().StringVar(&req.Email, "email", "", "E-mail address")
	addCmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password")
	addCmd.Flags().StringSliceVar(&req.Roles, "role", nil, "Role to grant (admin, staff); repeatable")
	addCmd.MarkFlagRequired("password")

	userCmd.AddCommand(addCmd)
	return userCmd
}
