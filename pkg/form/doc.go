// Package form keeps the state of a single controlled form: current values,
// per-field errors, touched flags and whether a submission is in flight.
//
// A Controller is created with initial values and an optional ValidateFunc.
// Change and blur handlers mutate one field at a time; HandleSubmit wraps a
// submit callback so that validation runs first and the submitting flag is
// always cleared afterwards:
//
//	ctrl := form.New(form.Values{"email": "", "password": ""}, validateLogin)
//	submit := ctrl.HandleSubmit(func(ctx context.Context, v form.Values) error {
//	    return flow.SubmitCredentials(ctx, authapi.Credentials{
//	        Email:    v.String("email"),
//	        Password: v.String("password"),
//	    })
//	})
//	if err := submit(ctx); errors.Is(err, form.ErrInvalid) {
//	    // field errors are in ctrl.Errors()
//	}
//
// The controller does not reject a second concurrent submission; callers
// disable their submit control while IsSubmitting reports true.
package form
