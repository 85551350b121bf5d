// Package storage implements the sub-compartment containers a compartment is
// built on.
//
// Every container satisfies the same sealed Storage interface and differs only
// in how its length may change:
//
//   - Disabled: always length 0, every operation is a no-op
//   - Fixed: length chosen at construction, never resized
//   - BoundedDynamic: resizable up to a maximum fixed at construction
//   - Dynamic: resizable to any non-negative length
//   - Balance: length 1 and the only kind allowed to hold negative values
//
// Containers are created through New, which rejects invalid length and kind
// combinations with core.ErrInvalidArgument:
//
//	s, err := storage.New[float64](storage.BoundedDynamic, 3, 10)
//	if err != nil {
//	    return err
//	}
//	err = s.Resize(12) // wraps core.ErrOutOfRange
package storage
