package channels

// SendNonBlock attempts to send a message without blocking.
// Returns ErrChannelFull when no receiver or buffer slot is ready, and
// ErrChannelClosed instead of panicking when ch has been closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}
