package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joestump/joe-gate/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start an admin session for the links commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			verifier, err := b.verifier()
			if err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			if username == "" {
				if username, err = promptLine(out, "Username: "); err != nil {
					return err
				}
			}
			password, err := promptPassword(out, "Password: ")
			if err != nil {
				return err
			}

			if !verifier.Verify(cmd.Context(), auth.Credentials{Username: username, Password: password}) {
				return errors.New("invalid username or password")
			}
			if err := b.adminFlag().SetAdmin(cmd.Context(), true); err != nil {
				return fmt.Errorf("save admin session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username (prompted when empty)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			if err := b.adminFlag().SetAdmin(cmd.Context(), false); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for GATE_ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.ErrOrStderr()
			password, err := promptPassword(out, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword(out, "Repeat password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
