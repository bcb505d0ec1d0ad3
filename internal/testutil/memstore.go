// Package testutil provides an in-memory transactional store for service
// tests. Transactions are serialized and roll back on error.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/counseling"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/internal/users"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

type state struct {
	seq             map[string]uint
	cases           map[uint]cases.Case
	history         []cases.StatusHistory
	comments        []cases.CaseComment
	identifications map[uint]cases.Identification
	forms           map[uint]counseling.Form
	sections        map[uint]counseling.Section
	notifications   []notifications.Notification
	users           []users.User
}

func newState() *state {
	return &state{
		seq:             map[string]uint{},
		cases:           map[uint]cases.Case{},
		identifications: map[uint]cases.Identification{},
		forms:           map[uint]counseling.Form{},
		sections:        map[uint]counseling.Section{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.seq {
		out.seq[k] = v
	}
	for id, c := range s.cases {
		out.cases[id] = copyCase(c)
	}
	for id, ident := range s.identifications {
		out.identifications[id] = ident
	}
	for id, f := range s.forms {
		out.forms[id] = f
	}
	for id, sec := range s.sections {
		out.sections[id] = sec
	}
	out.history = append(out.history, s.history...)
	out.comments = append(out.comments, s.comments...)
	out.notifications = append(out.notifications, s.notifications...)
	out.users = append(out.users, s.users...)
	return out
}

func (s *state) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

func copyCase(c cases.Case) cases.Case {
	c.WorkflowHistory = append(c.WorkflowHistory[:0:0], c.WorkflowHistory...)
	return c
}

// Store implements the case, counseling and stage repositories in memory.
// Stages sit outside the transactional state under their own lock, so the
// stage catalog can refresh from inside a running transaction.
type Store struct {
	mu    sync.Mutex
	state *state

	stageMu  sync.RWMutex
	stages   []stages.WorkflowStage
	stageSeq uint

	// FailCommit, when set, makes the next transaction fail after its body
	// ran, rolling every write back.
	FailCommit error
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// Cases returns the store as a case repository.
func (s *Store) Cases() cases.Repository { return &caseRepo{store: s} }

// Counseling returns the store as a counseling repository.
func (s *Store) Counseling() counseling.Repository { return &counselingRepo{store: s} }

// Stages returns the store as a stage repository.
func (s *Store) Stages() stages.Repository { return &stageRepo{store: s} }

func (s *Store) transact(fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	err := fn(&tx{state: s.state})
	if err == nil && s.FailCommit != nil {
		err = s.FailCommit
		s.FailCommit = nil
	}
	if err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// SeedCase stores c, assigning an id and case number when missing.
func (s *Store) SeedCase(c *cases.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.state.next("cases")
	}
	if c.CaseNumber == "" {
		c.CaseNumber = cases.FormatCaseNumber(c.CaseType, c.ID)
	}
	if c.Status == "" {
		c.Status = workflows.StatusDraft
	}
	s.state.cases[c.ID] = copyCase(*c)
}

// SeedForm stores f, assigning an id when missing.
func (s *Store) SeedForm(f *counseling.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == 0 {
		f.ID = s.state.next("forms")
	}
	s.state.forms[f.ID] = *f
}

func (s *Store) SeedIdentification(ident *cases.Identification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ident.ID == 0 {
		ident.ID = s.state.next("identifications")
	}
	s.state.identifications[ident.ID] = *ident
}

func (s *Store) SeedStages(list ...stages.WorkflowStage) {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()
	for _, st := range list {
		if st.ID == 0 {
			s.stageSeq++
			st.ID = s.stageSeq
		} else if st.ID > s.stageSeq {
			s.stageSeq = st.ID
		}
		s.stages = append(s.stages, st)
	}
}

func (s *Store) AddUser(u users.User) users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.state.next("users")
	}
	s.state.users = append(s.state.users, u)
	return u
}

// Case returns a copy of the stored case.
func (s *Store) Case(id uint) (cases.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.cases[id]
	return copyCase(c), ok
}

func (s *Store) Form(id uint) (counseling.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.state.forms[id]
	return f, ok
}

func (s *Store) Identification(id uint) (cases.Identification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.state.identifications[id]
	return ident, ok
}

func (s *Store) StatusHistory(caseID uint) []cases.StatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.historyFor(caseID)
}

func (s *Store) Comments(caseID uint) []cases.CaseComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.commentsFor(caseID)
}

func (s *Store) Notifications() []notifications.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Notification(nil), s.state.notifications...)
}

func (s *state) historyFor(caseID uint) []cases.StatusHistory {
	var out []cases.StatusHistory
	for _, h := range s.history {
		if h.CaseID == caseID {
			out = append(out, h)
		}
	}
	return out
}

func (s *state) commentsFor(caseID uint) []cases.CaseComment {
	var out []cases.CaseComment
	for _, c := range s.comments {
		if c.CaseID == caseID {
			out = append(out, c)
		}
	}
	return out
}

func notFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, workflows.ErrNotFound)
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

type tx struct {
	state *state
}

func (t *tx) LockCase(_ context.Context, id uint) (*cases.Case, error) {
	c, ok := t.state.cases[id]
	if !ok {
		return nil, notFound("case", id)
	}
	out := copyCase(c)
	return &out, nil
}

func (t *tx) CreateCase(_ context.Context, c *cases.Case) error {
	for _, existing := range t.state.cases {
		if existing.CaseNumber == c.CaseNumber {
			return fmt.Errorf("duplicate case number %s", c.CaseNumber)
		}
	}
	c.ID = t.state.next("cases")
	stamp(&c.CreatedAt)
	stamp(&c.UpdatedAt)
	t.state.cases[c.ID] = copyCase(*c)
	return nil
}

func (t *tx) SaveCase(_ context.Context, c *cases.Case) error {
	if _, ok := t.state.cases[c.ID]; !ok {
		return notFound("case", c.ID)
	}
	t.state.cases[c.ID] = copyCase(*c)
	return nil
}

func (t *tx) AppendStatusHistory(_ context.Context, entry *cases.StatusHistory) error {
	entry.ID = t.state.next("history")
	stamp(&entry.CreatedAt)
	t.state.history = append(t.state.history, *entry)
	return nil
}

func (t *tx) AddComment(_ context.Context, comment *cases.CaseComment) error {
	comment.ID = t.state.next("comments")
	stamp(&comment.CreatedAt)
	t.state.comments = append(t.state.comments, *comment)
	return nil
}

func (t *tx) LockIdentification(_ context.Context, id uint) (*cases.Identification, error) {
	ident, ok := t.state.identifications[id]
	if !ok {
		return nil, notFound("identification", id)
	}
	return &ident, nil
}

func (t *tx) SaveIdentification(_ context.Context, ident *cases.Identification) error {
	t.state.identifications[ident.ID] = *ident
	return nil
}

func (t *tx) LockForm(_ context.Context, id uint) (*counseling.Form, error) {
	f, ok := t.state.forms[id]
	if !ok {
		return nil, notFound("counseling form", id)
	}
	return &f, nil
}

func (t *tx) FindFormByCase(_ context.Context, caseID uint) (*counseling.Form, error) {
	for _, f := range t.state.forms {
		if f.CaseID == caseID {
			out := f
			return &out, nil
		}
	}
	return nil, nil
}

func (t *tx) CreateForm(_ context.Context, f *counseling.Form) error {
	for _, existing := range t.state.forms {
		if existing.CaseID == f.CaseID {
			return fmt.Errorf("duplicate counseling form for case %d", f.CaseID)
		}
	}
	f.ID = t.state.next("forms")
	stamp(&f.CreatedAt)
	t.state.forms[f.ID] = *f
	return nil
}

func (t *tx) SaveForm(_ context.Context, f *counseling.Form) error {
	t.state.forms[f.ID] = *f
	return nil
}

func (t *tx) SaveSection(_ context.Context, sec *counseling.Section) error {
	for id, existing := range t.state.sections {
		if existing.FormID == sec.FormID && existing.Name == sec.Name {
			sec.ID = id
			sec.CreatedAt = existing.CreatedAt
			t.state.sections[id] = *sec
			return nil
		}
	}
	sec.ID = t.state.next("sections")
	stamp(&sec.CreatedAt)
	t.state.sections[sec.ID] = *sec
	return nil
}

func (t *tx) ActiveUserIDsWithRoles(_ context.Context, roles []string) ([]uint, error) {
	var ids []uint
	for _, u := range t.state.users {
		if !u.IsActive {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				ids = append(ids, u.ID)
				break
			}
		}
	}
	return ids, nil
}

func (t *tx) CreateNotifications(_ context.Context, items []notifications.Notification) error {
	t.state.notifications = append(t.state.notifications, items...)
	return nil
}

type caseRepo struct {
	store *Store
}

func (r *caseRepo) RunInTransaction(_ context.Context, fn func(tx cases.Tx) error) error {
	return r.store.transact(func(t *tx) error { return fn(t) })
}

func (r *caseRepo) GetCase(_ context.Context, id uint) (*cases.Case, error) {
	c, ok := r.store.Case(id)
	if !ok {
		return nil, notFound("case", id)
	}
	return &c, nil
}

func (r *caseRepo) ListStatusHistory(_ context.Context, caseID uint) ([]cases.StatusHistory, error) {
	return r.store.StatusHistory(caseID), nil
}

func (r *caseRepo) ListComments(_ context.Context, caseID uint) ([]cases.CaseComment, error) {
	return r.store.Comments(caseID), nil
}

func (r *caseRepo) CreateIdentification(_ context.Context, ident *cases.Identification) error {
	r.store.SeedIdentification(ident)
	return nil
}

type counselingRepo struct {
	store *Store
}

func (r *counselingRepo) RunInTransaction(_ context.Context, fn func(tx counseling.Tx) error) error {
	return r.store.transact(func(t *tx) error { return fn(t) })
}

func (r *counselingRepo) GetForm(_ context.Context, id uint) (*counseling.Form, error) {
	f, ok := r.store.Form(id)
	if !ok {
		return nil, notFound("counseling form", id)
	}
	return &f, nil
}

func (r *counselingRepo) ListSections(_ context.Context, formID uint) ([]counseling.Section, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []counseling.Section
	for _, sec := range r.store.state.sections {
		if sec.FormID == formID {
			out = append(out, sec)
		}
	}
	return out, nil
}

type stageRepo struct {
	store *Store
}

func (r *stageRepo) ListActiveStages(_ context.Context) ([]stages.WorkflowStage, error) {
	r.store.stageMu.RLock()
	defer r.store.stageMu.RUnlock()
	var out []stages.WorkflowStage
	for _, st := range r.store.stages {
		if st.IsActive {
			st.AssociatedStatuses = append(st.AssociatedStatuses[:0:0], st.AssociatedStatuses...)
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *stageRepo) CreateStage(_ context.Context, stage *stages.WorkflowStage) error {
	r.store.stageMu.Lock()
	defer r.store.stageMu.Unlock()
	for _, st := range r.store.stages {
		if st.StageKey == stage.StageKey && sameScope(st.CaseType, stage.CaseType) {
			return fmt.Errorf("duplicate stage %s", stage.StageKey)
		}
	}
	r.store.stageSeq++
	stage.ID = r.store.stageSeq
	r.store.stages = append(r.store.stages, *stage)
	return nil
}

func sameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(*a, *b)
}
