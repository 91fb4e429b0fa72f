package ingest

import "github.com/iksnae/repo-pilot/internal"

// State is a step of an ingestion run
type State int

const (
	Idle State = iota
	ResolvingInfo
	NotFound
	FetchingLanguages
	DownloadingArchive
	Extracting
	CountingTokens
	Ready
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	ResolvingInfo:      "resolving-info",
	NotFound:           "not-found",
	FetchingLanguages:  "fetching-languages",
	DownloadingArchive: "downloading-archive",
	Extracting:         "extracting",
	CountingTokens:     "counting-tokens",
	Ready:              "ready",
	Failed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether a run ends in this state
func (s State) Terminal() bool {
	return s == NotFound || s == Ready || s == Failed
}

// Observer receives the progress of a run. Calls happen on the goroutine
// running the ingestion, in order.
type Observer interface {
	OnState(state State)
	OnInfo(info *internal.RepoInfo)
	OnProgress(received int64)
}

// ObserverFuncs adapts optional functions to Observer
type ObserverFuncs struct {
	State    func(State)
	Info     func(*internal.RepoInfo)
	Progress func(int64)
}

func (f ObserverFuncs) OnState(state State) {
	if f.State != nil {
		f.State(state)
	}
}

func (f ObserverFuncs) OnInfo(info *internal.RepoInfo) {
	if f.Info != nil {
		f.Info(info)
	}
}

func (f ObserverFuncs) OnProgress(received int64) {
	if f.Progress != nil {
		f.Progress(received)
	}
}
