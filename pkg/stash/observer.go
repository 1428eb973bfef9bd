package stash

// Observer receives write outcomes. Calls happen after the state lock is
// released, on the goroutine that performed the write.
type Observer interface {
	Committed(store string, changed []string)
	Suppressed(store string)
	ListenersChanged(store string, count int)
}

// Observers fans every call out to each non-nil observer in order.
type Observers []Observer

func (o Observers) Committed(store string, changed []string) {
	for _, ob := range o {
		if ob != nil {
			ob.Committed(store, changed)
		}
	}
}

func (o Observers) Suppressed(store string) {
	for _, ob := range o {
		if ob != nil {
			ob.Suppressed(store)
		}
	}
}

func (o Observers) ListenersChanged(store string, count int) {
	for _, ob := range o {
		if ob != nil {
			ob.ListenersChanged(store, count)
		}
	}
}
