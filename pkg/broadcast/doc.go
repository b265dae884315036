// Package broadcast is a small typed publish/subscribe bus.
//
// taskdesk uses it to carry gateway events (session expired, access denied,
// navigation requests) from the request layer to whoever presents them, so
// the request layer never prints or navigates itself:
//
//	bus := broadcast.NewMemoryBroadcaster[gateway.Event](16)
//	go broadcast.Listen(ctx, bus.Subscribe(ctx), app.handleEvent)
//
// Delivery is best effort: a subscriber whose buffer is full misses the value.
package broadcast
