package service_test

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jose-valero/mesa-queue-bot/internal/app/service"
	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"
)

// fakeStore implementa los ports de storage en memoria. El mutex juega el
// rol que en producción juega la tx de Postgres: cada primitiva es atómica,
// el core sigue sin tener locks propios.
type fakeStore struct {
	mu       sync.Mutex
	seq      int64
	games    map[int64]*storage.Game
	members  map[int64][]string
	byUser   map[string]int64
	plays    map[int64]map[string]*int
	blocks   map[[2]string]bool
	guildCfg storage.GuildConfig
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:   map[int64]*storage.Game{},
		members: map[int64][]string{},
		byUser:  map[string]int64{},
		plays:   map[int64]map[string]*int{},
		blocks:  map[[2]string]bool{},
	}
}

func (f *fakeStore) block(a, b string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[[2]string{a, b}] = true
}

func (f *fakeStore) blockedLocked(a, b string) bool {
	return f.blocks[[2]string{a, b}] || f.blocks[[2]string{b, a}]
}

func (f *fakeStore) sortedGamesLocked() []*storage.Game {
	out := make([]*storage.Game, 0, len(f.games))
	for _, g := range f.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) eligibleLocked(q storage.EligibleQuery) *storage.Game {
	for _, g := range f.sortedGamesLocked() {
		if g.GuildXID != q.GuildXID || g.ChannelXID != q.ChannelXID ||
			g.Format != q.Format || g.Seats != q.Seats || g.Status != storage.StatusPending {
			continue
		}
		if g.Seats-len(f.members[g.ID]) < len(q.Group) {
			continue
		}
		clean := true
	outer:
		for _, seated := range f.members[g.ID] {
			for _, uid := range q.Group {
				if f.blockedLocked(seated, uid) {
					clean = false
					break outer
				}
			}
		}
		if clean {
			return g
		}
	}
	return nil
}

func (f *fakeStore) busyLocked(group []string) bool {
	for _, uid := range group {
		if _, ok := f.byUser[uid]; ok {
			return true
		}
	}
	return false
}

func (f *fakeStore) seatLocked(gid int64, group []string) {
	f.members[gid] = append(f.members[gid], group...)
	for _, uid := range group {
		f.byUser[uid] = gid
	}
	f.games[gid].UpdatedAt = time.Now()
}

func (f *fakeStore) FindEligiblePending(_ context.Context, q storage.EligibleQuery) (storage.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g := f.eligibleLocked(q); g != nil {
		return *g, nil
	}
	return storage.Game{}, storage.ErrNotFound
}

func (f *fakeStore) SeatGroup(_ context.Context, gameID int64, group []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok || g.Status != storage.StatusPending {
		return storage.ErrConflict
	}
	if len(f.members[gameID])+len(group) > g.Seats {
		return storage.ErrConflict
	}
	// mismo re-check que la tx real: bloqueos contra los sentados actuales
	for _, seated := range f.members[gameID] {
		for _, uid := range group {
			if f.blockedLocked(seated, uid) {
				return storage.ErrBlockedSeat
			}
		}
	}
	if f.busyLocked(group) {
		return storage.ErrAlreadySeated
	}
	f.seatLocked(gameID, group)
	return nil
}

func (f *fakeStore) CreateAndSeat(_ context.Context, ng storage.NewGame, group []string) (storage.Game, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busyLocked(group) {
		return storage.Game{}, false, storage.ErrAlreadySeated
	}
	// re-scan bajo el lock, igual que el advisory lock por partición
	if g := f.eligibleLocked(storage.EligibleQuery{
		GuildXID: ng.GuildXID, ChannelXID: ng.ChannelXID,
		Format: ng.Format, Seats: ng.Seats, Group: group,
	}); g != nil {
		f.seatLocked(g.ID, group)
		return *g, false, nil
	}
	f.seq++
	now := time.Now()
	g := &storage.Game{
		ID:         f.seq,
		GuildXID:   ng.GuildXID,
		ChannelXID: ng.ChannelXID,
		Format:     ng.Format,
		Seats:      ng.Seats,
		Status:     storage.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.games[g.ID] = g
	f.seatLocked(g.ID, group)
	return *g, true, nil
}

func (f *fakeStore) SetStarted(_ context.Context, gameID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok || g.Status != storage.StatusPending || len(f.members[gameID]) != g.Seats {
		return false, nil
	}
	now := time.Now()
	g.Status = storage.StatusStarted
	g.StartedAt = &now
	if f.plays[gameID] == nil {
		f.plays[gameID] = map[string]*int{}
	}
	for _, uid := range f.members[gameID] {
		f.plays[gameID][uid] = nil
	}
	return true, nil
}

func (f *fakeStore) Get(_ context.Context, gameID int64) (storage.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.games[gameID]; ok {
		return *g, nil
	}
	return storage.Game{}, storage.ErrNotFound
}

func (f *fakeStore) FindByMessageRef(_ context.Context, channelXID, messageXID string) (storage.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.ChannelXID == channelXID && g.MessageXID != nil && *g.MessageXID == messageXID {
			return *g, nil
		}
	}
	return storage.Game{}, storage.ErrNotFound
}

func (f *fakeStore) FindActiveForUser(_ context.Context, userXID string) (storage.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gid, ok := f.byUser[userXID]; ok {
		if g, ok := f.games[gid]; ok {
			return *g, nil
		}
	}
	return storage.Game{}, storage.ErrNotFound
}

func (f *fakeStore) Players(_ context.Context, gameID int64) ([]storage.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Player
	gid := gameID
	for _, uid := range f.members[gameID] {
		p := storage.Player{UserXID: uid, GameID: &gid}
		if pts, ok := f.plays[gameID][uid]; ok && pts != nil {
			v := *pts
			p.Points = &v
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) SetMessageRef(_ context.Context, gameID int64, messageXID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.games[gameID]; ok {
		g.MessageXID = &messageXID
	}
	return nil
}

func (f *fakeStore) SetVoiceRefs(_ context.Context, gameID int64, voiceXID string, inviteLink *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.games[gameID]; ok && g.Status == storage.StatusStarted {
		g.VoiceXID = &voiceXID
		g.VoiceInviteLink = inviteLink
	}
	return nil
}

// PlayerStore

func (f *fakeStore) RemoveFromGame(_ context.Context, userXID string, gameID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gid, ok := f.byUser[userXID]; !ok || gid != gameID {
		return false, nil
	}
	delete(f.byUser, userXID)
	rest := f.members[gameID][:0]
	for _, uid := range f.members[gameID] {
		if uid != userXID {
			rest = append(rest, uid)
		}
	}
	f.members[gameID] = rest
	return true, nil
}

func (f *fakeStore) SetPoints(_ context.Context, userXID string, gameID int64, points int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plays[gameID][userXID]; !ok {
		return false, nil
	}
	f.plays[gameID][userXID] = &points
	return true, nil
}

// BlockStore

func (f *fakeStore) IsBlockedEitherDirection(_ context.Context, a, b string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockedLocked(a, b), nil
}

// SettingsStore

func (f *fakeStore) GuildConfig(_ context.Context, guildXID string) (storage.GuildConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.guildCfg
	cfg.GuildXID = guildXID
	return cfg, nil
}

func (f *fakeStore) ChannelConfig(_ context.Context, channelXID, guildXID string) (storage.ChannelConfig, error) {
	return storage.ChannelConfig{ChannelXID: channelXID, GuildXID: guildXID}, nil
}

// fakePoster simula el canal de Discord, con jitter para que los posts
// terminen fuera de orden cuando hay concurrencia real.
type fakePoster struct {
	mu          sync.Mutex
	seq         int
	sends       int
	updates     int
	inflight    int
	maxInflight int
	jitter      bool
	failSend    bool
}

func (p *fakePoster) SendGamePost(context.Context, string, service.GameView) (string, error) {
	p.mu.Lock()
	p.inflight++
	if p.inflight > p.maxInflight {
		p.maxInflight = p.inflight
	}
	jitter := p.jitter
	fail := p.failSend
	p.mu.Unlock()

	if jitter {
		time.Sleep(time.Duration(1+rand.Intn(4)) * time.Millisecond)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if fail {
		return "", fmt.Errorf("discord caído")
	}
	p.seq++
	p.sends++
	return fmt.Sprintf("msg-%d", p.seq), nil
}

func (p *fakePoster) UpdateGamePost(context.Context, string, string, service.GameView) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	return nil
}

func (p *fakePoster) FetchGamePost(context.Context, string, string) (bool, error) {
	return true, nil
}

type fakeVoice struct {
	mu         sync.Mutex
	seq        int
	created    int
	invites    int
	failCreate bool
	failInvite bool
}

func (v *fakeVoice) CreateVoiceChannel(context.Context, string, string, string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failCreate {
		return "", fmt.Errorf("sin permisos")
	}
	v.seq++
	v.created++
	return fmt.Sprintf("voice-%d", v.seq), nil
}

func (v *fakeVoice) CreateInvite(context.Context, string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failInvite {
		return "", fmt.Errorf("sin permisos")
	}
	v.invites++
	return "https://discord.gg/mesa", nil
}
