package petsync

import (
	"context"
	"sync"

	"deskpet-sync/internal/models"
)

// fakeAPI is an in-memory API used by the component tests
type fakeAPI struct {
	mu sync.Mutex

	friends    []models.Friend
	listErr    error
	listCalls  int
	addPeer    models.Pet
	addErr     error
	addCalls   int
	sent       []VisitRequest
	sendErr    error
	sentSignal chan VisitRequest
	consumed   []string
	consumeErr error
	latest     *models.Visit
	presence   []bool
}

func (f *fakeAPI) Register(ctx context.Context, name, breed, color string) (models.Pet, string, error) {
	return models.Pet{ID: "fake", Name: name, Breed: breed, Color: color}, "token", nil
}

func (f *fakeAPI) Rename(ctx context.Context, name string) error { return nil }

func (f *fakeAPI) UpdatePresence(ctx context.Context, online bool, name, breed, color string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence = append(f.presence, online)
	return nil
}

func (f *fakeAPI) AddFriend(ctx context.Context, code string) (models.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return models.Pet{}, f.addErr
	}
	return f.addPeer, nil
}

func (f *fakeAPI) AcceptFriend(ctx context.Context, peerID string) error { return nil }

func (f *fakeAPI) RemoveFriend(ctx context.Context, peerID string) error { return nil }

func (f *fakeAPI) ListFriends(ctx context.Context) ([]models.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.friends, nil
}

func (f *fakeAPI) SendVisit(ctx context.Context, req VisitRequest) error {
	f.mu.Lock()
	err := f.sendErr
	if err == nil {
		f.sent = append(f.sent, req)
	}
	signal := f.sentSignal
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if signal != nil {
		signal <- req
	}
	return nil
}

func (f *fakeAPI) LatestVisit(ctx context.Context) (*models.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeAPI) ConsumeVisit(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumed = append(f.consumed, id)
	return nil
}

func (f *fakeAPI) Subscribe(ctx context.Context) (<-chan models.Visit, error) {
	ch := make(chan models.Visit)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeAPI) sentVisits() []VisitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]VisitRequest, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeAPI) presenceCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.presence))
	copy(out, f.presence)
	return out
}

func (f *fakeAPI) consumedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.consumed))
	copy(out, f.consumed)
	return out
}
