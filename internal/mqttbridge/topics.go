package mqttbridge

// Topics builds the topic names for one desk.
type Topics struct {
	Prefix string
	Desk   string
}

func (t Topics) base() string {
	return t.Prefix + "/" + t.Desk
}

// Set is where commands are received.
func (t Topics) Set() string { return t.base() + "/set" }

// Get is where height requests are received.
func (t Topics) Get() string { return t.base() + "/get" }

// Height is where the current height is published.
func (t Topics) Height() string { return t.base() + "/height" }

// Status carries the bridge's online/offline state.
func (t Topics) Status() string { return t.base() + "/status" }

// Error carries the description of the last failed command.
func (t Topics) Error() string { return t.base() + "/error" }
