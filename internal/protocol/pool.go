package protocol

import "sync"

// messagePool recycles *Message values on the device server's per-command
// hot path, mirroring arloliu/go-secs's hsms.dataMsgPool / getDataMessage /
// putDataMessage discipline for its own message type.
var messagePool = sync.Pool{New: func() any { return new(Message) }}

var usePool = true

// UsePool enables or disables the message pool, matching hsms.UsePool.
// Tests that want to inspect pointer identity across calls can disable it.
func UsePool(val bool) {
	usePool = val
}

// IsUsePool reports whether the message pool is currently enabled.
func IsUsePool() bool {
	return usePool
}

// GetMessage returns a pooled *Message reset to the given value.
func GetMessage(m Message) *Message {
	var p *Message
	if usePool {
		p, _ = messagePool.Get().(*Message)
	}
	if p == nil {
		p = new(Message)
	}
	*p = m
	return p
}

// PutMessage returns msg to the pool. msg must not be accessed afterward.
func PutMessage(msg *Message) {
	if usePool && msg != nil {
		*msg = Message{}
		messagePool.Put(msg)
	}
}
