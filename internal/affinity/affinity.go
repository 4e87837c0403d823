// Package affinity pins an operation to the goroutine that first performed
// it. The dispatch coordinator uses it to keep result delivery on the host's
// designated goroutine.
package affinity

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var stackBufPool = sync.Pool{
	New: func() any {
		// Only the first line of the trace is parsed.
		return make([]byte, 64)
	},
}

// GoroutineID returns the id of the calling goroutine, or 0 if it could not
// be determined.
func GoroutineID() int64 {
	buf := stackBufPool.Get().([]byte)
	defer func() {
		//lint:ignore SA6002 []byte is pointer-like (slice header contains pointer)
		stackBufPool.Put(buf)
	}()
	n := runtime.Stack(buf, false)
	return parseGoroutineID(buf[:n])
}

// parseGoroutineID reads the integer following the "goroutine " prefix of a
// runtime.Stack header ("goroutine 42 [running]:"). It does not allocate.
func parseGoroutineID(stack []byte) int64 {
	const prefix = "goroutine "
	if len(stack) <= len(prefix) || string(stack[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, b := range stack[len(prefix):] {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + int64(b-'0')
	}
	return id
}

// Owner records the first goroutine to call Claim. The zero value is unbound.
type Owner struct {
	id atomic.Int64
}

// Claim binds the calling goroutine if the owner is unbound, and reports
// whether the caller is the bound goroutine. An undeterminable goroutine id
// never binds and is always rejected.
func (o *Owner) Claim() bool {
	gid := GoroutineID()
	if gid == 0 {
		return false
	}
	if o.id.CompareAndSwap(0, gid) {
		return true
	}
	return o.id.Load() == gid
}

// ID returns the bound goroutine id, or 0 when unbound.
func (o *Owner) ID() int64 {
	return o.id.Load()
}
