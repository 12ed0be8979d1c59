package event

// PassApplied is published after a scheduling pass drained its commands.
type PassApplied struct {
	Pass    uint64
	Phase   string
	Applied int
}

// PassFailed is published when a pass's drain aborted.
type PassFailed struct {
	Pass  uint64
	Phase string
	Err   error
}
