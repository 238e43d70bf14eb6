package ocr

import (
	"context"
	"sync"

	"github.com/sandraschi/ocr-gateway/internal/logger"
	"github.com/sirupsen/logrus"
)

// AvailabilityCell memoizes a backend's availability probe. The first caller
// runs the probe; concurrent callers block on the same computation and every
// later caller observes the cached outcome. A failed probe never propagates
// outward, it logs its cause and resolves to false for the process lifetime.
type AvailabilityCell struct {
	once      sync.Once
	available bool
}

// Resolve returns the memoized availability, running probe on first use.
func (c *AvailabilityCell) Resolve(ctx context.Context, backend string, probe func(context.Context) error) bool {
	c.once.Do(func() {
		defer func() {
			// A panicking probe counts as unavailable.
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"backend": backend,
					"panic":   r,
				}).Error("Availability probe panicked")
				c.available = false
			}
		}()

		if err := probe(ctx); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"backend": backend,
			}).Warn("Availability probe failed")
			return
		}
		c.available = true
		logger.WithFields(logrus.Fields{
			"backend": backend,
		}).Debug("Availability probe succeeded")
	})
	return c.available
}
