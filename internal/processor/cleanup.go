package processor

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store can test for and delete named layers
type Store interface {
	Exists(name string) (bool, error)
	Delete(name string) error
}

// Cleanup deletes every layer of names that exists, in order. Missing layers
// are skipped.
func Cleanup(store Store, names []string, logger *logrus.Logger) (int, error) {
	deleted := 0
	for _, name := range names {
		ok, err := store.Exists(name)
		if err != nil {
			return deleted, err
		}
		if !ok {
			logger.Debugf("Cleanup: %s not present", name)
			continue
		}
		if err := store.Delete(name); err != nil {
			return deleted, fmt.Errorf("cleanup: %w", err)
		}
		logger.Infof("Deleted intermediate layer %s", name)
		deleted++
	}
	return deleted, nil
}
