// Package taskdesk is the client core of the TaskDesk marketplace, where
// clients post tasks and developers deliver them.
//
// App composes the building blocks into one value:
//
//   - pkg/session persists the signed-in user in memory, a JSON file or Redis.
//   - pkg/csrf caches the anti-forgery token and coalesces concurrent fetches.
//   - pkg/gateway sends authenticated API calls, retries once on a rejected
//     CSRF token and turns failures into gateway.Event values.
//   - svc/authapi wraps the auth endpoints.
//   - modules/signin drives login, MFA and email verification.
//
// The gateway never navigates. Its events are published on a broadcast bus;
// App.Listen (or Subscribe plus Follow) applies their redirects to the
// tracked location and hands them to the presentation layer.
//
//	cfg, err := config.LoadApp()
//	if err != nil {
//		return err
//	}
//	app, err := taskdesk.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	go app.Listen(ctx, func(ctx context.Context, ev gateway.Event) {
//		fmt.Println(ev.Message)
//	})
//
//	flow := app.SignIn()
//	err = flow.SubmitCredentials(ctx, authapi.Credentials{Email: email, Password: pw})
package taskdesk
