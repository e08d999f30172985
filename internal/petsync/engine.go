package petsync

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"deskpet-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// ScreenInfo is what the engine needs from the excluded UI/movement
// layer: the usable desktop area and the local pet's current position,
// used to compute visitor spawn and target points.
type ScreenInfo interface {
	Bounds() Screen
	PetPosition() Point
}

// Config holds the engine's tunables
type Config struct {
	ServerURL         string
	StateFile         string
	RequestTimeout    time.Duration
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	StaleWindow       time.Duration
	FriendsRefresh    time.Duration
	VisitMinDelay     time.Duration
	VisitMaxDelay     time.Duration
	VisitProbability  float64
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.StaleWindow == 0 {
		c.StaleWindow = 2 * time.Minute
	}
	if c.FriendsRefresh == 0 {
		c.FriendsRefresh = 30 * time.Second
	}
	if c.VisitMinDelay == 0 {
		c.VisitMinDelay = 4 * time.Minute
	}
	if c.VisitMaxDelay == 0 {
		c.VisitMaxDelay = 10 * time.Minute
	}
	if c.VisitProbability == 0 {
		c.VisitProbability = 0.3
	}
	return c
}

// NoticeKind classifies engine notifications for the UI layer
type NoticeKind int

const (
	// NoticeVisitorArrived means a new visitor entered the screen
	NoticeVisitorArrived NoticeKind = iota
	// NoticeVisitorMessage means the current visitor's bubble updated
	NoticeVisitorMessage
	// NoticeVisitorDeparted means the visitor finished its exit walk
	NoticeVisitorDeparted
)

// Notice is one UI-facing event
type Notice struct {
	Kind  NoticeKind
	Visit models.Visit
}

// VisitorSnapshot is a point-in-time view of the on-screen visitor
type VisitorSnapshot struct {
	Visit         models.Visit
	State         VisitorState
	Position      Point
	BubbleVisible bool
}

// Engine owns the sync components and exposes the boundary API the UI
// layer consumes. All visitor mutation happens on the engine's single
// run loop, which keeps the mailbox reconciliation ordering intact.
type Engine struct {
	cfg     Config
	api     *Client
	ident   *IdentityStore
	friends *FriendList
	mailbox *Mailbox
	beat    *Heartbeat
	hangout *Hangout
	sched   *Scheduler
	screen  ScreenInfo
	rnd     *rand.Rand

	notices chan Notice

	mu      sync.Mutex
	visitor *Visitor
	baseCtx context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// New creates an engine from config. The identity, if previously
// persisted, is loaded immediately.
func New(cfg Config, screen ScreenInfo) *Engine {
	cfg = cfg.withDefaults()

	api := NewClient(cfg.ServerURL, cfg.RequestTimeout)
	ident := NewIdentityStore(cfg.StateFile)

	self := ident.Identity
	selfPet := func() (models.Pet, bool) {
		id, ok := ident.Identity()
		return id.Pet, ok
	}

	friends := NewFriendList(api, cfg.StaleWindow)
	mailbox := NewMailbox(api, selfPet, cfg.PollInterval)

	e := &Engine{
		cfg:     cfg,
		api:     api,
		ident:   ident,
		friends: friends,
		mailbox: mailbox,
		beat:    NewHeartbeat(api, self, cfg.HeartbeatInterval),
		hangout: NewHangout(api, friends, self),
		sched:   NewScheduler(mailbox, friends, cfg.VisitMinDelay, cfg.VisitMaxDelay, cfg.VisitProbability, nil),
		screen:  screen,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		notices: make(chan Notice, 16),
	}

	if id, ok := ident.Identity(); ok {
		api.SetToken(id.Token)
	}

	return e
}

// Notices is the UI-facing event stream
func (e *Engine) Notices() <-chan Notice {
	return e.notices
}

// Start begins syncing if an identity exists. Without one the engine
// idles until Register succeeds; everything else returns
// ErrNotRegistered until then.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	if e.ident.Registered() {
		e.startLoops(ctx)
	}
}

// Stop tears the sync loops down. The heartbeat makes its best-effort
// offline assertion on the way out.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

func (e *Engine) startLoops(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.mu.Unlock()

	e.wg.Add(4)
	go func() {
		defer e.wg.Done()
		e.mailbox.Run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.beat.Run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.sched.Run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.runLoop(runCtx)
	}()

	log.Info().Msg("Sync engine started")
}

// runLoop is the single goroutine that owns the visitor: it consumes
// reconciled mailbox events, drives the walk animation, and refreshes
// the friend cache.
func (e *Engine) runLoop(ctx context.Context) {
	if err := e.friends.Refresh(ctx); err != nil {
		log.Debug().Err(err).Msg("Initial friend refresh failed")
	}

	anim := time.NewTicker(100 * time.Millisecond)
	defer anim.Stop()
	refresh := time.NewTicker(e.cfg.FriendsRefresh)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.mailbox.Events():
			e.handleMailboxEvent(ev)
		case <-anim.C:
			e.advanceVisitor(time.Now())
		case <-refresh.C:
			if err := e.friends.Refresh(ctx); err != nil {
				log.Debug().Err(err).Msg("Friend refresh failed")
			}
		}
	}
}

func (e *Engine) handleMailboxEvent(ev Event) {
	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Kind {
	case VisitorArrived:
		e.visitor = NewVisitor(ev.Visit, e.screen.Bounds(), e.screen.PetPosition(), e.rnd, now)
		e.notify(Notice{Kind: NoticeVisitorArrived, Visit: ev.Visit})
		log.Info().
			Str("from_pet_id", ev.Visit.FromPetID).
			Str("name", ev.Visit.Name).
			Msg("Visitor arrived")
	case VisitorMessage:
		if e.visitor == nil {
			return
		}
		e.visitor.ShowMessage(ev.Visit.Message, now)
		e.notify(Notice{Kind: NoticeVisitorMessage, Visit: e.visitor.Visit})
	}
}

func (e *Engine) advanceVisitor(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.visitor == nil {
		return
	}
	if e.visitor.Advance(now) == Done {
		visit := e.visitor.Visit
		e.visitor = nil
		e.mailbox.ClearSlot()
		e.notify(Notice{Kind: NoticeVisitorDeparted, Visit: visit})
		log.Info().Str("from_pet_id", visit.FromPetID).Msg("Visitor departed")
	}
}

func (e *Engine) notify(n Notice) {
	select {
	case e.notices <- n:
	default:
		log.Debug().Msg("Notice dropped, UI consumer is behind")
	}
}

// Register creates the pet identity. Idempotent at the client level:
// a persisted identity makes this fail without a network call.
func (e *Engine) Register(ctx context.Context, name, breed, color string) (models.Pet, error) {
	if name == "" {
		return models.Pet{}, ErrEmptyName
	}
	if e.ident.Registered() {
		return models.Pet{}, ErrAlreadyRegistered
	}

	pet, token, err := e.api.Register(ctx, name, breed, color)
	if err != nil {
		return models.Pet{}, err
	}

	if err := e.ident.Save(Identity{Pet: pet, Token: token}); err != nil {
		return models.Pet{}, err
	}
	e.api.SetToken(token)

	e.mu.Lock()
	baseCtx := e.baseCtx
	e.mu.Unlock()
	if baseCtx != nil {
		e.startLoops(baseCtx)
	}

	return pet, nil
}

// Rename updates the pet's display name locally and on the backend.
// The next heartbeat re-asserts it either way.
func (e *Engine) Rename(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if !e.ident.Registered() {
		return ErrNotRegistered
	}
	if err := e.api.Rename(ctx, name); err != nil {
		return err
	}
	return e.ident.SetName(name)
}

// Identity returns the local pet record
func (e *Engine) Identity() (models.Pet, bool) {
	id, ok := e.ident.Identity()
	return id.Pet, ok
}

// AddFriend adds a peer by shareable code
func (e *Engine) AddFriend(ctx context.Context, code string) (models.Pet, error) {
	id, ok := e.ident.Identity()
	if !ok {
		return models.Pet{}, ErrNotRegistered
	}
	return e.friends.Add(ctx, id.Pet.Code, code)
}

// AcceptFriend adds the reverse edge toward a pending-incoming peer
func (e *Engine) AcceptFriend(ctx context.Context, peerID string) error {
	if !e.ident.Registered() {
		return ErrNotRegistered
	}
	return e.friends.Accept(ctx, peerID)
}

// RemoveFriend removes the local pet's own edge
func (e *Engine) RemoveFriend(ctx context.Context, peerID string) error {
	if !e.ident.Registered() {
		return ErrNotRegistered
	}
	return e.friends.Remove(ctx, peerID)
}

// ListFriends returns the cached friend list with derived status
func (e *Engine) ListFriends() []FriendView {
	return e.friends.Friends()
}

// StartHangout starts a mutual visit with an online mutual friend
func (e *Engine) StartHangout(ctx context.Context, friendID string) error {
	return e.hangout.Start(ctx, friendID)
}

// SendChat sends a chat message to a peer as a visit record
func (e *Engine) SendChat(ctx context.Context, peerID, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	return e.mailbox.Send(ctx, peerID, text)
}

// ChatWithVisitor sends a reply to the current visitor's origin. The
// visitor stays Idle.
func (e *Engine) ChatWithVisitor(ctx context.Context, text string) error {
	e.mu.Lock()
	visitor := e.visitor
	e.mu.Unlock()

	if visitor == nil {
		return ErrNoVisitor
	}
	return e.SendChat(ctx, visitor.Visit.FromPetID, text)
}

// SendVisitorHome starts the current visitor's exit walk
func (e *Engine) SendVisitorHome() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.visitor == nil {
		return ErrNoVisitor
	}
	e.visitor.SendHome(time.Now())
	return nil
}

// CurrentVisitor returns a snapshot of the on-screen visitor
func (e *Engine) CurrentVisitor() (VisitorSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.visitor == nil {
		return VisitorSnapshot{}, false
	}
	now := time.Now()
	return VisitorSnapshot{
		Visit:         e.visitor.Visit,
		State:         e.visitor.State(),
		Position:      e.visitor.Position(),
		BubbleVisible: e.visitor.BubbleVisible(now),
	}, true
}

// Connected reports backend reachability as a persistent state
func (e *Engine) Connected() bool {
	return e.api.Connected()
}
