package tui

import "github.com/hubview/hubview/pkg/rate"

// pageLoadedMsg delivers one fetched page to the update loop. seq is
// the request sequence number at dispatch time; the loop discards the
// message when a newer request for the same view has started since
// (last-request-wins).
type pageLoadedMsg struct {
	view      View
	seq       uint64
	items     []item
	next      string
	fromCache bool
	stale     bool
	limits    rate.Snapshot
}

// pageErrMsg reports a failed page fetch. Items already shown for the
// view stay on screen; the error renders inline in the status bar.
type pageErrMsg struct {
	view View
	seq  uint64
	err  error
}

// mutationDoneMsg is sent when an asynchronous mutating call (close
// issue, dispatch workflow) completes. On success the affected view is
// reloaded; the cache prefix was already invalidated by the client.
type mutationDoneMsg struct {
	view   View
	notice string
	err    error
}

// statusFadeMsg clears a transient status notice after a short delay.
type statusFadeMsg struct{}
