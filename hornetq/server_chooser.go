package hornetq

import "sync"

// ServerChooser provides endpoint URI selection for connect and failover.
type ServerChooser interface {
	CurrentURI() string
	ReportFailure(err error)
	ReportSuccess()
	Error() string
	Add(uri string) ServerChooser
	Remove(uri string)
}

// RoundRobinChooser rotates through its URIs, advancing on every reported
// failure.
type RoundRobinChooser struct {
	lock      sync.Mutex
	uris      []string
	index     int
	lastError string
}

// NewRoundRobinChooser creates a chooser with optional URIs.
func NewRoundRobinChooser(uris ...string) *RoundRobinChooser {
	chooser := &RoundRobinChooser{}
	for _, uri := range uris {
		chooser.Add(uri)
	}
	return chooser
}

// CurrentURI returns the currently selected URI, or "" when empty.
func (chooser *RoundRobinChooser) CurrentURI() string {
	chooser.lock.Lock()
	defer chooser.lock.Unlock()
	if len(chooser.uris) == 0 {
		return ""
	}
	if chooser.index < 0 || chooser.index >= len(chooser.uris) {
		chooser.index = 0
	}
	return chooser.uris[chooser.index]
}

// ReportFailure records a connection failure and advances to the next URI.
func (chooser *RoundRobinChooser) ReportFailure(err error) {
	chooser.lock.Lock()
	defer chooser.lock.Unlock()
	if err != nil {
		chooser.lastError = err.Error()
	}
	if len(chooser.uris) > 0 {
		chooser.index = (chooser.index + 1) % len(chooser.uris)
	}
}

// ReportSuccess clears the recorded failure.
func (chooser *RoundRobinChooser) ReportSuccess() {
	chooser.lock.Lock()
	chooser.lastError = ""
	chooser.lock.Unlock()
}

// Error returns the most recently reported failure, or "".
func (chooser *RoundRobinChooser) Error() string {
	chooser.lock.Lock()
	defer chooser.lock.Unlock()
	return chooser.lastError
}

// Add appends a URI and returns the chooser for chaining.
func (chooser *RoundRobinChooser) Add(uri string) ServerChooser {
	if uri == "" {
		return chooser
	}
	chooser.lock.Lock()
	chooser.uris = append(chooser.uris, uri)
	chooser.lock.Unlock()
	return chooser
}

// Remove drops a URI from rotation.
func (chooser *RoundRobinChooser) Remove(uri string) {
	if uri == "" {
		return
	}
	chooser.lock.Lock()
	defer chooser.lock.Unlock()

	filtered := chooser.uris[:0]
	for _, candidate := range chooser.uris {
		if candidate != uri {
			filtered = append(filtered, candidate)
		}
	}
	chooser.uris = filtered
	if chooser.index >= len(chooser.uris) {
		chooser.index = 0
	}
}
