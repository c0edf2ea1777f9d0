// Package resolver holds the upload-conflict state machine for one session.
//
// A selection whose name is free is committed straight away. A selection
// whose name collides with an existing object is staged in memory until the
// user explicitly overwrites or cancels.
package resolver

import "errors"

// ErrInvalidState is returned when a decision is made with nothing staged.
var ErrInvalidState = errors.New("resolver: no upload is staged")

// Decision is the resolver's verdict on the staged upload
type Decision int

const (
	// Pending means the caller must present the overwrite/cancel choice
	Pending Decision = iota
	// CommitOverwrite means the bytes should be uploaded now
	CommitOverwrite
	// Cancel means the staged bytes were discarded
	Cancel
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case CommitOverwrite:
		return "commit"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// State is the position of the resolver in its state machine
type State int

const (
	Idle State = iota
	// Staged is held only inside EvaluateSelection, between capture and
	// the collision check.
	Staged
	PendingDecision
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Staged:
		return "staged"
	case PendingDecision:
		return "pending-decision"
	}
	return "unknown"
}

// Selection is a file picked by the user, as captured by the shell
type Selection struct {
	FileName string
	Content  []byte
	MimeType string
}

// PendingUpload is an upload waiting for the user's decision
type PendingUpload struct {
	FileName string `json:"fileName"`
	Content  []byte `json:"content"`
	MimeType string `json:"mimeType"`
}

// CommittedUpload is what the caller must write to the store
type CommittedUpload struct {
	FileName string
	Content  []byte
	MimeType string
}

// Evaluation is the result of EvaluateSelection. Upload is set only when
// Decision is CommitOverwrite.
type Evaluation struct {
	Decision Decision
	Upload   *CommittedUpload
}

// NameSet holds base names of objects already in the folder
type NameSet map[string]struct{}

// NewNameSet builds a NameSet from base names
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set
func (s NameSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Resolver is the conflict state of a single session. It is not safe for
// concurrent use; each request works on its own instance.
type Resolver struct {
	pending *PendingUpload
	state   State
}

// New returns an idle resolver
func New() *Resolver {
	return &Resolver{}
}

// Resume rebuilds a resolver from a persisted pending upload. A nil upload
// yields an idle resolver.
func Resume(p *PendingUpload) *Resolver {
	r := New()
	if p != nil {
		r.pending = p.clone()
		r.state = PendingDecision
	}
	return r
}

// State returns the current state
func (r *Resolver) State() State {
	return r.state
}

// Pending returns a copy of the staged upload, or nil when idle.
func (r *Resolver) Pending() *PendingUpload {
	if r.pending == nil {
		return nil
	}
	return r.pending.clone()
}

// EvaluateSelection checks sel against existing. A free name is committed
// immediately with sel's own bytes, dropping anything staged, and the
// resolver returns to Idle. A taken name is staged unless the same name is
// already waiting, and the resolver waits for CommitOverwrite or Cancel.
// The store is never touched.
func (r *Resolver) EvaluateSelection(sel Selection, existing NameSet) Evaluation {
	if !existing.Contains(sel.FileName) {
		r.stage(sel)
		upload := r.release()
		return Evaluation{Decision: CommitOverwrite, Upload: &upload}
	}

	if r.pending == nil || r.pending.FileName != sel.FileName {
		r.stage(sel)
	}
	r.state = PendingDecision
	return Evaluation{Decision: Pending}
}

// CommitOverwrite hands back the staged bytes and returns to Idle.
func (r *Resolver) CommitOverwrite() (CommittedUpload, error) {
	if r.pending == nil {
		return CommittedUpload{}, ErrInvalidState
	}
	return r.release(), nil
}

// Cancel discards the staged bytes and returns to Idle.
func (r *Resolver) Cancel() error {
	if r.pending == nil {
		return ErrInvalidState
	}
	r.release()
	return nil
}

func (r *Resolver) stage(sel Selection) {
	r.pending = &PendingUpload{
		FileName: sel.FileName,
		Content:  append([]byte(nil), sel.Content...),
		MimeType: sel.MimeType,
	}
	r.state = Staged
}

func (r *Resolver) release() CommittedUpload {
	p := r.pending
	r.pending = nil
	r.state = Idle
	return CommittedUpload{
		FileName: p.FileName,
		Content:  p.Content,
		MimeType: p.MimeType,
	}
}

func (p *PendingUpload) clone() *PendingUpload {
	return &PendingUpload{
		FileName: p.FileName,
		Content:  append([]byte(nil), p.Content...),
		MimeType: p.MimeType,
	}
}
