package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrijs2005/cartsync/internal/auth"
	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/dmitrijs2005/cartsync/internal/lifecycle"
	"github.com/dmitrijs2005/cartsync/internal/logging"
	"github.com/dmitrijs2005/cartsync/internal/models"
)

// AuthProvider supplies the authentication triple the mode selector branches
// on. Satisfied by *auth.Service.
type AuthProvider interface {
	Current() auth.State
}

// Notifier receives user-visible reports about remote operations that failed.
// The store logs details itself; the notifier only needs to tell the user
// which action went wrong.
type Notifier func(action string, err error)

// historyMigrator is implemented by engines that move completed items into a
// persisted history table once the promotion threshold elapses.
type historyMigrator interface {
	MigrateItem(ctx context.Context, itemID string) error
}

// refetcher is implemented by engines whose mirror can go stale.
type refetcher interface {
	Refetch(ctx context.Context) error
}

// Store is the unified façade the presentation layer talks to. Each call
// re-reads the authentication state and dispatches to the local or the remote
// engine, so signing in or out mid-session transparently switches modes.
//
// Errors returned from store operations are validation failures meant for
// inline display. Remote I/O failures never propagate: they are logged,
// reported through the notifier, and the call returns normally with the
// mirror untouched.
type Store struct {
	authp        AuthProvider
	local        *LocalEngine
	remote       Engine
	log          logging.Logger
	notify       Notifier
	promoteAfter time.Duration
	now          func() time.Time

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight int
	closed   bool

	sweeper *cron.Cron
}

// Options configures a Store. Remote may be nil when no backend is
// configured; the store then never leaves Local Mode.
type Options struct {
	Auth         AuthProvider
	Local        *LocalEngine
	Remote       Engine
	PromoteAfter time.Duration
	Notify       Notifier
	Logger       logging.Logger
}

func New(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(string, error) {}
	}
	promoteAfter := opts.PromoteAfter
	if promoteAfter <= 0 {
		promoteAfter = lifecycle.DefaultPromoteAfter
	}
	return &Store{
		authp:        opts.Auth,
		local:        opts.Local,
		remote:       opts.Remote,
		log:          log,
		notify:       notify,
		promoteAfter: promoteAfter,
		now:          time.Now,
		timers:       make(map[string]*time.Timer),
	}
}

// engine resolves the current mode. A state still loading, an anonymous
// identity or a missing backend all keep the store local.
func (s *Store) engine() Engine {
	if s.remote != nil && s.authp.Current().Authenticated() {
		return s.remote
	}
	return Engine(s.local)
}

// IsAuthenticated reports whether operations currently run against the
// hosted backend.
func (s *Store) IsAuthenticated() bool {
	return s.remote != nil && s.authp.Current().Authenticated()
}

// User returns the current identity, or nil before any sign-in.
func (s *Store) User() *auth.Identity {
	return s.authp.Current().User
}

// Loading reports whether the UI should show the store as busy: either the
// authentication state is mid-transition or a remote operation is in flight.
func (s *Store) Loading() bool {
	if s.authp.Current().Loading {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Lists returns the current view of every reachable list. Fetch failures are
// reported through the notifier and yield the empty view.
func (s *Store) Lists(ctx context.Context) []models.List {
	var lists []models.List
	err := s.execute(ctx, "load lists", func(ctx context.Context, e Engine) error {
		var err error
		lists, err = e.Lists(ctx)
		return err
	})
	if err != nil {
		return nil
	}
	return lists
}

// Stage classifies an item for display at the current instant.
func (s *Store) Stage(item models.Item) lifecycle.Stage {
	return lifecycle.Classify(item, s.now(), s.promoteAfter)
}

func (s *Store) CreateList(ctx context.Context, name string, memberEmails []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.ErrEmptyListName
	}
	members := make([]string, 0, len(memberEmails))
	for _, m := range memberEmails {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if !validEmail(m) {
			return "", common.ErrInvalidEmail
		}
		members = append(members, m)
	}

	var id string
	err := s.execute(ctx, "create list", func(ctx context.Context, e Engine) error {
		var err error
		id, err = e.CreateList(ctx, name, members)
		return err
	})
	return id, err
}

func (s *Store) AddItem(ctx context.Context, listID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.ErrEmptyItemName
	}
	return s.execute(ctx, "add item", func(ctx context.Context, e Engine) error {
		return e.AddItem(ctx, listID, name)
	})
}

// ToggleItemDone flips an item's completion. Marking done arms a single
// promotion timer for the item; un-marking cancels it, so a re-toggled item
// is never migrated by a stale timer.
func (s *Store) ToggleItemDone(ctx context.Context, listID, itemID string) error {
	if s.rejectHistoryID(ctx, "toggle", itemID) {
		return nil
	}
	return s.execute(ctx, "toggle item", func(ctx context.Context, e Engine) error {
		done, err := e.ToggleItemDone(ctx, listID, itemID)
		if err != nil {
			return err
		}
		if m, ok := e.(historyMigrator); ok && done {
			s.armPromotion(itemID, m)
		} else {
			s.cancelPromotion(itemID)
		}
		return nil
	})
}

func (s *Store) UpdateItemName(ctx context.Context, listID, itemID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.ErrEmptyItemName
	}
	if s.rejectHistoryID(ctx, "rename", itemID) {
		return nil
	}
	return s.execute(ctx, "rename item", func(ctx context.Context, e Engine) error {
		return e.UpdateItemName(ctx, listID, itemID, name)
	})
}

func (s *Store) UpdateItemDescription(ctx context.Context, listID, itemID, text string) error {
	if s.rejectHistoryID(ctx, "describe", itemID) {
		return nil
	}
	return s.execute(ctx, "update description", func(ctx context.Context, e Engine) error {
		return e.UpdateItemDescription(ctx, listID, itemID, strings.TrimSpace(text))
	})
}

func (s *Store) CycleItemRepeat(ctx context.Context, listID, itemID string) error {
	if s.rejectHistoryID(ctx, "cycle repeat", itemID) {
		return nil
	}
	return s.execute(ctx, "set repeat", func(ctx context.Context, e Engine) error {
		return e.CycleItemRepeat(ctx, listID, itemID)
	})
}

func (s *Store) RemoveItem(ctx context.Context, listID, itemID string) error {
	if s.rejectHistoryID(ctx, "remove", itemID) {
		return nil
	}
	return s.execute(ctx, "remove item", func(ctx context.Context, e Engine) error {
		if err := e.RemoveItem(ctx, listID, itemID); err != nil {
			return err
		}
		s.cancelPromotion(itemID)
		return nil
	})
}

func (s *Store) InviteMember(ctx context.Context, listID, email string) (InviteOutcome, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return InviteLocalOnly, common.ErrInvalidEmail
	}
	outcome := InviteLocalOnly
	err := s.execute(ctx, "invite member", func(ctx context.Context, e Engine) error {
		var err error
		outcome, err = e.InviteMember(ctx, listID, email)
		return err
	})
	return outcome, err
}

func (s *Store) RemoveMember(ctx context.Context, listID, email string) error {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return common.ErrInvalidEmail
	}
	return s.execute(ctx, "remove member", func(ctx context.Context, e Engine) error {
		return e.RemoveMember(ctx, listID, email)
	})
}

func (s *Store) ClearListHistory(ctx context.Context, listID string) error {
	return s.execute(ctx, "clear history", func(ctx context.Context, e Engine) error {
		return e.ClearHistory(ctx, listID)
	})
}

func (s *Store) UpdateItemOrder(ctx context.Context, listID, itemID string, order int) error {
	if s.rejectHistoryID(ctx, "reorder", itemID) {
		return nil
	}
	return s.execute(ctx, "reorder item", func(ctx context.Context, e Engine) error {
		return e.UpdateItemOrder(ctx, listID, itemID, order)
	})
}

func (s *Store) RestoreFromHistory(ctx context.Context, listID, sourceID string) (string, error) {
	var id string
	err := s.execute(ctx, "restore item", func(ctx context.Context, e Engine) error {
		var err error
		id, err = e.RestoreFromHistory(ctx, listID, sourceID)
		return err
	})
	return id, err
}

// Refresh forces a full refetch of the remote mirror. A no-op in Local Mode.
// Wired to the change-notification subscriber.
func (s *Store) Refresh(ctx context.Context) {
	e := s.engine()
	r, ok := e.(refetcher)
	if !ok {
		return
	}
	_ = s.execute(ctx, "refresh lists", func(ctx context.Context, _ Engine) error {
		return r.Refetch(ctx)
	})
}

// StartSweeps begins the periodic re-materialization of repeating items.
func (s *Store) StartSweeps(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeper != nil || s.closed {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc("@every "+interval.String(), s.sweep); err != nil {
		return err
	}
	c.Start()
	s.sweeper = c
	return nil
}

func (s *Store) sweep() {
	ctx := context.Background()
	_ = s.execute(ctx, "respawn repeating items", func(ctx context.Context, e Engine) error {
		return e.RematerializeDue(ctx, s.now())
	})
}

// Close cancels every outstanding promotion timer and stops the sweep.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
}

// execute runs fn against the engine selected for this call and applies the
// propagation policy: validation failures return to the caller, a vanished
// list or item downgrades to a logged no-op, and everything else is reported
// through the notifier without propagating.
func (s *Store) execute(ctx context.Context, action string, fn func(ctx context.Context, e Engine) error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return common.ErrStoreClosed
	}

	e := s.engine()

	if e == Engine(s.local) {
		err := fn(ctx, e)
		return s.settle(ctx, action, err)
	}

	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	return s.settle(ctx, action, fn(ctx, e))
}

func (s *Store) settle(ctx context.Context, action string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrOwnerImmutable),
		errors.Is(err, common.ErrAlreadyExists):
		return err
	case errors.Is(err, common.ErrListNotFound), errors.Is(err, common.ErrItemNotFound):
		s.log.Warn(ctx, "target vanished, ignoring", "action", action, "error", err)
		return nil
	default:
		s.log.Error(ctx, "operation failed", "action", action, "error", err)
		s.notify(action, err)
		return nil
	}
}

// rejectHistoryID blocks mutations against items synthesized from archived
// history records. Not an error: the UI should not offer these affordances on
// archived rows in the first place.
func (s *Store) rejectHistoryID(ctx context.Context, action, itemID string) bool {
	if !models.IsHistoryID(itemID) {
		return false
	}
	s.log.Warn(ctx, "ignoring mutation of archived item", "action", action, "item", itemID)
	return true
}

func (s *Store) armPromotion(itemID string, m historyMigrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[itemID]; ok {
		t.Stop()
	}
	s.timers[itemID] = time.AfterFunc(s.promoteAfter, func() {
		s.mu.Lock()
		delete(s.timers, itemID)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		ctx := context.Background()
		if err := m.MigrateItem(ctx, itemID); err != nil {
			if errors.Is(err, common.ErrItemNotFound) {
				s.log.Debug(ctx, "item gone before migration", "item", itemID)
				return
			}
			s.log.Error(ctx, "history migration failed", "item", itemID, "error", err)
			s.notify("archive item", err)
		}
	})
}

func (s *Store) cancelPromotion(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[itemID]; ok {
		t.Stop()
		delete(s.timers, itemID)
	}
}

// validEmail applies the same lightweight shape check the screens use. Real
// verification happens when the invitation is redeemed.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t") {
		return false
	}
	return !strings.Contains(email[at+1:], "@")
}
