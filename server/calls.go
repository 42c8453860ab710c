package server

import (
	"net/http"
	"net/url"

	"github.com/bradenaw/juniper/xslices"
)

// Call is a single request/response pair observed by the server.
type Call struct {
	URL    *url.URL
	Method string
	Status int

	RequestHeader http.Header
	RequestBody   []byte

	ResponseHeader http.Header
	ResponseBody   []byte
}

// callWatcher publishes calls on the watched paths. An empty path list
// watches everything.
type callWatcher struct {
	fn    func(Call)
	paths []string
}

func newCallWatcher(fn func(Call), paths ...string) callWatcher {
	return callWatcher{
		fn:    fn,
		paths: paths,
	}
}

func (watcher callWatcher) isWatching(path string) bool {
	if len(watcher.paths) == 0 {
		return true
	}

	return xslices.Index(watcher.paths, path) >= 0
}

func (watcher callWatcher) publish(call Call) {
	watcher.fn(call)
}
