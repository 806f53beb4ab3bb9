package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Params is a named set of hyperparameter values.
type Params map[string]float64

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the params as name=value pairs in name order.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, ",")
}

// Trial is one evaluated search candidate. Lower Loss is better; Seq is the
// candidate's position in the sample and breaks ties.
type Trial struct {
	RunID      string
	Stage      string
	Seq        int
	Params     Params
	Loss       float64
	Score      float64
	Err        string
	RecordedAt time.Time
}

// Failed reports whether the trial could not be evaluated.
func (t Trial) Failed() bool {
	return t.Err != ""
}

// Less orders trials by loss then by sample position. Failed trials sort last.
func (t Trial) Less(o Trial) bool {
	if t.Failed() != o.Failed() {
		return !t.Failed()
	}
	if t.Loss != o.Loss {
		return t.Loss < o.Loss
	}
	return t.Seq < o.Seq
}

// Candidate is a trial waiting to be evaluated.
type Candidate struct {
	RunID  string
	Stage  string
	Seq    int
	Params Params
}
