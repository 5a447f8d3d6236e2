package checkout

import (
	"crypto/rand"

	"github.com/go-faster/errors"
)

// Order numbers are 10 uppercase alphanumeric characters. 36^10 values make
// birthday collisions negligible; generation still verifies uniqueness and
// retries a bounded number of times, with the database unique constraint as
// the final backstop.
const (
	orderNumberLen      = 10
	orderNumberCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberAttempts = 10
)

// ErrOrderNumberExhausted is returned when every generation attempt collided
// with an existing order number.
var ErrOrderNumberExhausted = errors.New("could not generate a unique order number")

// newOrderNumber returns a random order number candidate.
func newOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLen)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}
	for i, b := range buf {
		buf[i] = orderNumberCharset[int(b)%len(orderNumberCharset)]
	}
	return string(buf), nil
}

// generateOrderNumber produces an order number that does not collide with an
// existing order, retrying up to orderNumberAttempts times.
func generateOrderNumber(exists func(number string) (bool, error)) (string, error) {
	for range orderNumberAttempts {
		number, err := newOrderNumber()
		if err != nil {
			return "", err
		}
		taken, err := exists(number)
		if err != nil {
			return "", errors.Wrap(err, "check order number")
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrOrderNumberExhausted
}
