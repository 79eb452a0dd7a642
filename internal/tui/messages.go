package tui

// highlightsLoadedMsg is sent from the cache subscriber; the model then
// reads the cache itself.
type highlightsLoadedMsg struct{}

type placeRemovedMsg struct {
	id    int64
	title string
}

type errMsg struct {
	err error
}
