package logging

import "go.uber.org/zap"

// Observer logs stash write outcomes at debug level.
type Observer struct {
	log *zap.Logger
}

func NewObserver(log *zap.Logger) *Observer {
	return &Observer{log: log}
}

func (o *Observer) Committed(store string, changed []string) {
	o.log.Debug("stash committed", zap.String("store", store), zap.Strings("changed", changed))
}

func (o *Observer) Suppressed(store string) {
	o.log.Debug("stash write suppressed", zap.String("store", store))
}

func (o *Observer) ListenersChanged(store string, count int) {
	o.log.Debug("stash listeners changed", zap.String("store", store), zap.Int("listeners", count))
}
