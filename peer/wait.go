package peer

import "time"

// waitForLocked blocks on n.cond until pred is satisfied or timeout
// elapses, returning pred's final value. The caller must already hold
// n.mu; waitForLocked releases and reacquires it internally via
// sync.Cond.Wait. sync.Cond has no native timeout, so a timer goroutine
// broadcasts once the deadline passes to unblock a Wait call that would
// otherwise sleep forever on a predicate that never becomes true.
func (n *Node) waitForLocked(timeout time.Duration, pred func() bool) bool {
	if pred() {
		return true
	}
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		n.mu.Lock()
		n.cond.Broadcast()
		n.mu.Unlock()
	})
	defer timer.Stop()
	for !pred() && time.Now().Before(deadline) {
		n.cond.Wait()
	}
	return pred()
}
