package usecase

import (
	"errors"
	"fmt"
)

// ErrTransientStore indicates a store failure inside a use case. Callers may retry.
var ErrTransientStore = errors.New("chat use case: transient store error")

func transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransientStore, err)
}
