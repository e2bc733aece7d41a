/*
Package event provides the publish/subscribe primitives used by the chat core.

There is no global bus. Two shapes are offered:

# Emitter

Emitter[T] is a typed, synchronous observer list owned by exactly one component
(a hierarchy, a change-set, a response). Handlers run on the emitting goroutine
immediately after the mutation, outside the owner's locks:

	var changes event.Emitter[hierarchy.ChangeEvent[*Request]]
	unsubscribe := changes.On(func(e hierarchy.ChangeEvent[*Request]) {
		log.Debug().Str("branch", e.Branch.ID()).Msg("active item changed")
	})
	defer unsubscribe()

# Bus

Bus is the session-level fan-out. PublishSync calls direct subscribers in the
publisher's goroutine and then mirrors the event, JSON encoded, onto a watermill
gochannel under Topic:

	bus := event.NewBus()
	defer bus.Close()

	msgs, _ := bus.Messages(ctx)
	go func() {
		for msg := range msgs {
			ev, _ := event.Decode(msg)
			fmt.Println(ev.Type)
			msg.Ack()
		}
	}()

# Subscriber Safety Guidelines

Subscribers are called synchronously. They must complete quickly and must not
publish on the same bus from inside a handler.
*/
package event
