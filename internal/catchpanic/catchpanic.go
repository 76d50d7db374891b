package catchpanic

import (
	"fmt"
)

// Do runs fn and converts a panic into a returned error. Worker loops use
// this so a panicking task restarts the worker instead of the process.
func Do(fn func() error) (err error) {
	defer func() {
		if ex := recover(); ex != nil {
			switch v := ex.(type) {
			case error:
				err = fmt.Errorf("catchpanic.Do: recovered: %w", v)
			default:
				err = fmt.Errorf("catchpanic.Do: recovered: %v", v)
			}
		}
	}()

	return fn()
}
