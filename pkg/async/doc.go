// Package async runs a function in the background and hands back a typed
// Future for its result.
//
//	f := async.Go(ctx, func(ctx context.Context) (string, error) {
//		return csrf.Fetch(ctx)
//	})
//	token, err := f.AwaitWithTimeout(2 * time.Second)
//
// taskdesk uses it for the CSRF warm-up fired at startup and for the parallel
// checks of the doctor command.
package async
