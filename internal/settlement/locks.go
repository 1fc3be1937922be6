package settlement

import "sync"

// invoiceLocks serializes settlements per invoice number so two concurrent
// returns against one sale cannot interleave their reads. The optimistic
// version check in the store remains the backstop for multi-process
// deployments sharing one database.
type invoiceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newInvoiceLocks() *invoiceLocks {
	return &invoiceLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *invoiceLocks) lock(invoiceNumber string) func() {
	l.mu.Lock()
	m, ok := l.locks[invoiceNumber]
	if !ok {
		m = &sync.Mutex{}
		l.locks[invoiceNumber] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
