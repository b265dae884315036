package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/taskdesk"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/validator"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

var errNotSignedIn = errors.New("not signed in")

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				if err := app.Auth().Logout(ctx); err != nil {
					return err
				}
				app.Navigate(ctx, app.Routes().LoginPath)
				fmt.Fprintln(c.out, "Signed out.")
				return nil
			})
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				sess, err := app.Sessions().Load(ctx)
				if errors.Is(err, session.ErrSessionNotFound) {
					fmt.Fprintln(c.out, "Not signed in. Run: taskdesk login")
					return errNotSignedIn
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(c.out, "User:  %s\n", displayName(sess))
				fmt.Fprintf(c.out, "Role:  %s\n", sess.Role)
				fmt.Fprintf(c.out, "Home:  %s\n", app.Location())
				if exp, ok := sess.ExpiresAt(); ok {
					state := "valid"
					if sess.IsExpired(time.Now()) {
						state = "expired"
					}
					fmt.Fprintf(c.out, "Token: %s until %s\n", state, exp.Local().Format(time.DateTime))
				}
				return nil
			})
		},
	}
}

func (c *cli) passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change or reset your password",
	}

	change := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				current, err := c.prompt.secret("Current password: ")
				if err != nil {
					return err
				}
				next, err := c.newPassword()
				if err != nil {
					return err
				}
				msg, err := app.Auth().ChangePassword(ctx, current, next)
				return c.printResult(msg, "Password changed.", err)
			})
		},
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				email, err := c.prompt.value(email, "Email: ")
				if err != nil {
					return err
				}
				msg, err := app.Auth().ForgotPassword(ctx, email)
				return c.printResult(msg, "Check your inbox for a reset link.", err)
			})
		},
	}
	forgot.Flags().StringVar(&email, "email", "", "account email")

	reset := &cobra.Command{
		Use:   "reset <token>",
		Short: "Set a new password with the token from the reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				next, err := c.newPassword()
				if err != nil {
					return err
				}
				msg, err := app.Auth().ResetPassword(ctx, args[0], next)
				return c.printResult(msg, "Password reset. You can log in now.", err)
			})
		},
	}

	cmd.AddCommand(change, forgot, reset)
	return cmd
}

func (c *cli) mfaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage two-factor authentication",
	}

	var code string
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Turn off two-factor authentication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				password, err := c.prompt.secret("Password: ")
				if err != nil {
					return err
				}
				msg, err := app.Auth().DisableMFA(ctx, authapi.DisableMFA{Password: password, Token: code})
				return c.printResult(msg, "Two-factor authentication disabled.", err)
			})
		},
	}
	disable.Flags().StringVar(&code, "code", "", "current authenticator code")

	cmd.AddCommand(disable)
	return cmd
}

// newPassword asks for a new password twice.
func (c *cli) newPassword() (string, error) {
	for {
		next, err := c.prompt.secret("New password: ")
		if err != nil {
			return "", err
		}
		if msg := validator.Password(next); msg != "" {
			fmt.Fprintln(c.errOut, msg)
			continue
		}
		confirm, err := c.prompt.secret("Confirm new password: ")
		if err != nil {
			return "", err
		}
		if msg := validator.PasswordMatch(next, confirm); msg != "" {
			fmt.Fprintln(c.errOut, msg)
			continue
		}
		return next, nil
	}
}

func (c *cli) printResult(msg, fallback string, err error) error {
	if err != nil {
		if verrs := validator.ExtractValidationErrors(err); !verrs.IsEmpty() {
			for _, e := range verrs {
				fmt.Fprintln(c.errOut, e.Message)
			}
		}
		return err
	}
	if msg == "" {
		msg = fallback
	}
	fmt.Fprintln(c.out, msg)
	return nil
}
