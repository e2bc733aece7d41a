package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// RepeatThreshold is the number of identical consecutive tool calls that
// stops a request.
const RepeatThreshold = 3

// ErrRepeatedToolCall is returned when the model keeps issuing the same call.
var ErrRepeatedToolCall = errors.New("model repeated the same tool call")

// repeatDetector remembers the most recent tool call fingerprints of one
// request. It is owned by a single Invoke and needs no locking.
type repeatDetector struct {
	last  string
	count int
}

// observe records a call and reports an error once the same name and
// arguments have been seen RepeatThreshold times in a row.
func (d *repeatDetector) observe(name, arguments string) error {
	h := sha256.Sum256([]byte(name + "\x00" + arguments))
	fp := hex.EncodeToString(h[:])
	if fp == d.last {
		d.count++
	} else {
		d.last = fp
		d.count = 1
	}
	if d.count >= RepeatThreshold {
		return fmt.Errorf("%w: %s x%d", ErrRepeatedToolCall, name, d.count)
	}
	return nil
}
