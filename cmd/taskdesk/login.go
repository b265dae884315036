package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/taskdesk"
	"github.com/dmitrymomot/taskdesk/modules/signin"
	"github.com/dmitrymomot/taskdesk/pkg/form"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/validator"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

var errCancelled = errors.New("sign-in cancelled")

func (c *cli) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password.

When the account has MFA enabled you are asked for an authenticator code;
type "backup" to use a backup code instead. When the email address is not
verified yet, enter the 6-digit code that was emailed to you, or "resend".

Examples:
  taskdesk login
  taskdesk login --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				email, err := c.prompt.value(email, "Email: ")
				if err != nil {
					return err
				}
				password, err := c.prompt.secretValue(password, "Password: ")
				if err != nil {
					return err
				}

				flow := app.SignIn()
				ctrl := form.New(form.Values{"email": email, "password": password}, validateLogin)
				submit := ctrl.HandleSubmit(func(ctx context.Context, v form.Values) error {
					return flow.SubmitCredentials(ctx, authapi.Credentials{
						Email:    v.String("email"),
						Password: v.String("password"),
					})
				})
				if err := submit(ctx); err != nil {
					return c.reportSubmitError(ctrl, flow, err)
				}
				return c.completeSignIn(ctx, app, flow)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (prompted if empty)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if empty)")
	return cmd
}

func validateLogin(v form.Values) form.Errors {
	return form.Errors{
		"email":    validator.Email(v.String("email")),
		"password": validator.Required(v.String("password"), "Password"),
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var preset struct{ name, email, role, phone string }

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create a client or developer account.

Each answer is checked as soon as it is entered. New accounts usually have
to confirm their email address with the code sent to it.

Examples:
  taskdesk register --role developer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				ctrl := form.New(form.Values{
					"name": "", "email": "", "password": "", "confirm": "",
					"role": string(session.RoleClient), "phone": "",
				}, validateRegistration)

				fields := []struct {
					name, label, preset string
					secret              bool
				}{
					{"name", "Full name: ", preset.name, false},
					{"email", "Email: ", preset.email, false},
					{"password", "Password: ", "", true},
					{"confirm", "Confirm password: ", "", true},
					{"role", "Role (client/developer) [client]: ", preset.role, false},
					{"phone", "Phone (optional): ", preset.phone, false},
				}
				for _, f := range fields {
					if err := c.askField(ctrl, f.name, f.label, f.preset, f.secret); err != nil {
						return err
					}
				}

				flow := app.SignIn()
				submit := ctrl.HandleSubmit(func(ctx context.Context, v form.Values) error {
					return flow.SubmitRegistration(ctx, authapi.Registration{
						Name:     strings.TrimSpace(v.String("name")),
						Email:    v.String("email"),
						Password: v.String("password"),
						Role:     session.Role(v.String("role")),
						Phone:    strings.TrimSpace(v.String("phone")),
					})
				})
				if err := submit(ctx); err != nil {
					return c.reportSubmitError(ctrl, flow, err)
				}
				return c.completeSignIn(ctx, app, flow)
			})
		},
	}

	cmd.Flags().StringVar(&preset.name, "name", "", "full name")
	cmd.Flags().StringVar(&preset.email, "email", "", "account email")
	cmd.Flags().StringVar(&preset.role, "role", "", "client or developer")
	cmd.Flags().StringVar(&preset.phone, "phone", "", "phone number")
	return cmd
}

func validateRegistration(v form.Values) form.Errors {
	errs := form.Errors{
		"name":     validator.Required(v.String("name"), "Name"),
		"email":    validator.Email(v.String("email")),
		"password": validator.Password(v.String("password")),
		"confirm":  validator.PasswordMatch(v.String("password"), v.String("confirm")),
	}
	switch session.Role(v.String("role")) {
	case session.RoleClient, session.RoleDeveloper:
	default:
		errs["role"] = "Role must be client or developer"
	}
	if phone := v.String("phone"); strings.TrimSpace(phone) != "" {
		errs["phone"] = validator.Phone(phone)
	}
	return errs
}

// askField prompts until the field passes validation. A preset value that
// fails is an error rather than a prompt.
func (c *cli) askField(ctrl *form.Controller, field, label, preset string, secret bool) error {
	for {
		var (
			answer string
			err    error
		)
		if secret {
			answer, err = c.prompt.secretValue(preset, label)
		} else {
			answer, err = c.prompt.value(preset, label)
		}
		if err != nil {
			return err
		}
		if answer != "" || field != "role" {
			ctrl.SetValue(field, answer)
		}
		ctrl.HandleBlur(field)

		msg := ctrl.Error(field)
		if msg == "" {
			return nil
		}
		if preset != "" {
			return fmt.Errorf("--%s: %s", field, msg)
		}
		fmt.Fprintln(c.errOut, msg)
	}
}

// reportSubmitError prints field and inline errors of a failed submission.
func (c *cli) reportSubmitError(ctrl *form.Controller, flow *signin.Flow, err error) error {
	if apiErr, ok := gateway.AsAPIError(err); ok {
		ctrl.MergeErrors(apiErr.FieldErrors())
	}
	errs := ctrl.Errors()
	fields := make([]string, 0, len(errs))
	for field, msg := range errs {
		if msg != "" {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	for _, field := range fields {
		fmt.Fprintf(c.errOut, "%s: %s\n", field, errs[field])
	}
	if msg := flow.View().Error; msg != "" {
		fmt.Fprintln(c.errOut, msg)
	}
	return err
}

// completeSignIn walks the MFA or verification step until a session is
// established or input runs out.
func (c *cli) completeSignIn(ctx context.Context, app *taskdesk.App, flow *signin.Flow) error {
	var prev signin.State
	for {
		state := flow.State()
		entered := state != prev
		prev = state

		var err error
		switch state {
		case signin.StateSessionEstablished:
			sess := flow.View().Session
			fmt.Fprintf(c.out, "Signed in as %s (%s)\n", displayName(sess), sess.Role)
			fmt.Fprintf(c.out, "Home: %s\n", app.Location())
			return nil
		case signin.StateMFAChallenge:
			if entered {
				fmt.Fprintln(c.out, "Two-factor authentication is enabled for this account.")
			}
			err = c.mfaStep(ctx, flow)
		case signin.StateEmailVerification:
			if entered {
				fmt.Fprintf(c.out, "We sent a %d-digit code to %s.\n", validator.OTPLength, flow.View().VerificationEmail)
			}
			err = c.verifyStep(ctx, flow)
		default:
			return errCancelled
		}
		if err != nil {
			return err
		}
	}
}

func (c *cli) mfaStep(ctx context.Context, flow *signin.Flow) error {
	view := flow.View()
	label := `Authenticator code (or "backup", "back"): `
	if view.MFAMethod == signin.MethodBackup {
		label = `Backup code (or "otp", "back"): `
	}
	answer, err := c.prompt.ask(label)
	if err != nil {
		return err
	}

	switch strings.ToLower(answer) {
	case "back":
		if err := flow.BackToLogin(ctx); err != nil {
			return err
		}
		return errCancelled
	case "backup", "otp":
		if want := signin.MFAMethod(strings.ToLower(answer)); want != view.MFAMethod {
			_, err := flow.ToggleMFAMethod()
			return err
		}
		return nil
	}

	complete, err := flow.PasteMFA(answer)
	if err != nil {
		return err
	}
	if !complete {
		fmt.Fprintf(c.errOut, "Enter all %d characters.\n", len(view.MFACode))
		return nil
	}
	return c.retryable(flow, signin.StateMFAChallenge, flow.SubmitMFA(ctx))
}

func (c *cli) verifyStep(ctx context.Context, flow *signin.Flow) error {
	answer, err := c.prompt.ask(`Code (or "resend", "back"): `)
	if err != nil {
		return err
	}

	switch strings.ToLower(answer) {
	case "back":
		if err := flow.BackToLogin(ctx); err != nil {
			return err
		}
		return errCancelled
	case "resend":
		err := flow.ResendOTP(ctx)
		if errors.Is(err, signin.ErrResendCooldown) {
			fmt.Fprintf(c.errOut, "You can request a new code in %ds.\n", flow.View().ResendIn)
			return nil
		}
		if err == nil {
			fmt.Fprintln(c.out, "A new code is on its way.")
		}
		return c.retryable(flow, signin.StateEmailVerification, err)
	}

	submitted, err := flow.PasteOTP(ctx, answer)
	if err != nil {
		return c.retryable(flow, signin.StateEmailVerification, err)
	}
	if !submitted {
		fmt.Fprintf(c.errOut, "Enter all %d digits.\n", validator.OTPLength)
	}
	return nil
}

// retryable turns a failure that left the flow in step into a printed
// message so the user can try again.
func (c *cli) retryable(flow *signin.Flow, step signin.State, err error) error {
	if err == nil {
		return nil
	}
	view := flow.View()
	if view.State != step || view.Error == "" {
		return err
	}
	fmt.Fprintln(c.errOut, view.Error)
	return nil
}

func displayName(s *session.Session) string {
	switch {
	case s.Name != "" && s.Email != "":
		return fmt.Sprintf("%s <%s>", s.Name, s.Email)
	case s.Email != "":
		return s.Email
	case s.Name != "":
		return s.Name
	default:
		return s.UserID
	}
}
