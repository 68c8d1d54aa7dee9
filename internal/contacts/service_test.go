package contacts_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"contactbook/backend/internal/contacts"
	"contactbook/backend/internal/events"
	"contactbook/backend/internal/models"
	"contactbook/backend/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T, opts ...contacts.Option) (*contacts.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return contacts.NewService(db, opts...), db
}

func findConn(t *testing.T, db *gorm.DB, from, to uint) models.Connection {
	t.Helper()
	var conn models.Connection
	require.NoError(t, db.Where("requester_id = ? AND target_id = ?", from, to).First(&conn).Error)
	return conn
}

func TestRequestContact(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	bob := testutil.NewUser(t, db, "Bob")
	ben := testutil.NewUser(t, db, "Ben")

	conn, err := svc.RequestContact(ctx, bob.ID, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, conn.RequesterID)
	assert.Equal(t, ben.ID, conn.TargetID)
	assert.False(t, conn.Accepted)
	assert.False(t, findConn(t, db, bob.ID, ben.ID).Accepted)

	t.Run("duplicate ordered pair conflicts", func(t *testing.T) {
		_, err := svc.RequestContact(ctx, bob.ID, ben.ID)
		assert.ErrorIs(t, err, contacts.ErrConflict)

		var count int64
		require.NoError(t, db.Model(&models.Connection{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("reverse direction is a separate request", func(t *testing.T) {
		_, err := svc.RequestContact(ctx, ben.ID, bob.ID)
		assert.NoError(t, err)
	})

	t.Run("self request", func(t *testing.T) {
		_, err := svc.RequestContact(ctx, bob.ID, bob.ID)
		assert.ErrorIs(t, err, contacts.ErrSelfRequest)
	})

	t.Run("unknown users", func(t *testing.T) {
		_, err := svc.RequestContact(ctx, bob.ID, 999)
		assert.ErrorIs(t, err, contacts.ErrUserNotFound)
		_, err = svc.RequestContact(ctx, 999, bob.ID)
		assert.ErrorIs(t, err, contacts.ErrUserNotFound)
	})
}

func TestAcceptRequest(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	bob := testutil.NewUser(t, db, "Bob")
	ben := testutil.NewUser(t, db, "Ben")
	testutil.NewConnection(t, db, bob.ID, ben.ID, false)
	testutil.NewConnection(t, db, ben.ID, bob.ID, false)

	conn, err := svc.AcceptRequest(ctx, bob.ID, ben.ID)
	require.NoError(t, err)
	assert.True(t, conn.Accepted)

	assert.True(t, findConn(t, db, bob.ID, ben.ID).Accepted)
	assert.False(t, findConn(t, db, ben.ID, bob.ID).Accepted, "reciprocal request must stay unaccepted")

	t.Run("accepting twice is a no-op", func(t *testing.T) {
		conn, err := svc.AcceptRequest(ctx, bob.ID, ben.ID)
		require.NoError(t, err)
		assert.True(t, conn.Accepted)
	})

	t.Run("missing request", func(t *testing.T) {
		alfred := testutil.NewUser(t, db, "Alfred")
		_, err := svc.AcceptRequest(ctx, alfred.ID, bob.ID)
		assert.ErrorIs(t, err, contacts.ErrConnectionNotFound)

		var count int64
		require.NoError(t, db.Model(&models.Connection{}).Where("requester_id = ?", alfred.ID).Count(&count).Error)
		assert.Zero(t, count, "no request may be created as a side effect")
	})
}

func TestConfirmedContactsPolicies(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	a := testutil.NewUser(t, db, "A")
	b := testutil.NewUser(t, db, "B") // a <-> b, nothing accepted
	c := testutil.NewUser(t, db, "C") // a -> c accepted
	d := testutil.NewUser(t, db, "D") // d -> a accepted, a -> d accepted
	e := testutil.NewUser(t, db, "E") // e -> a, a -> e accepted
	f := testutil.NewUser(t, db, "F") // a -> f unaccepted only

	testutil.NewConnection(t, db, a.ID, b.ID, false)
	testutil.NewConnection(t, db, b.ID, a.ID, false)
	testutil.NewConnection(t, db, a.ID, c.ID, true)
	testutil.NewConnection(t, db, d.ID, a.ID, true)
	testutil.NewConnection(t, db, a.ID, d.ID, true)
	testutil.NewConnection(t, db, e.ID, a.ID, false)
	testutil.NewConnection(t, db, a.ID, e.ID, true)
	testutil.NewConnection(t, db, a.ID, f.ID, false)

	tests := []struct {
		policy contacts.Policy
		want   []uint
	}{
		{policy: contacts.PolicyAccepted, want: []uint{c.ID, d.ID, e.ID}},
		{policy: contacts.PolicyMutualAccepted, want: []uint{d.ID}},
		{policy: contacts.PolicyBidirectional, want: []uint{b.ID, d.ID, e.ID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got, err := svc.ConfirmedContacts(ctx, a.ID, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, testutil.IDs(got))
		})
	}

	t.Run("symmetric for the other side", func(t *testing.T) {
		got, err := svc.ConfirmedContacts(ctx, d.ID, contacts.PolicyMutualAccepted)
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID}, testutil.IDs(got))
	})

	t.Run("empty policy uses the default", func(t *testing.T) {
		got, err := svc.ConfirmedContacts(ctx, a.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []uint{c.ID, d.ID, e.ID}, testutil.IDs(got))
	})
}

func TestConfirmedContactsEdgeCases(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	lonely := testutil.NewUser(t, db, "")

	got, err := svc.ConfirmedContacts(ctx, lonely.ID, contacts.PolicyBidirectional)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = svc.ConfirmedContacts(ctx, 404, contacts.PolicyAccepted)
	assert.ErrorIs(t, err, contacts.ErrUserNotFound)

	_, err = svc.ConfirmedContacts(ctx, lonely.ID, "friends-of-friends")
	assert.ErrorIs(t, err, contacts.ErrInvalidPolicy)

	t.Run("self edge never yields the user itself", func(t *testing.T) {
		testutil.NewConnection(t, db, lonely.ID, lonely.ID, true)
		for _, p := range contacts.Policies {
			got, err := svc.ConfirmedContacts(ctx, lonely.ID, p)
			require.NoError(t, err)
			assert.Empty(t, got, p)
		}
	})
}

func TestResolve(t *testing.T) {
	user := func(id uint, name string) models.User {
		u := models.User{Name: name}
		u.ID = id
		return u
	}

	requested := []models.User{user(2, "Ben"), user(3, "Alfred"), user(5, "Fizzz")}
	requestedBy := []models.User{user(4, "Theo"), user(2, "Ben (second copy)"), user(3, "Alfred")}

	got := contacts.Resolve(requested, requestedBy)
	assert.Equal(t, []uint{2, 3}, testutil.IDs(got))
	assert.Equal(t, "Ben", got[0].Name, "first occurrence wins")

	assert.Empty(t, contacts.Resolve(nil, nil))
	assert.Empty(t, contacts.Resolve(requested, nil))
}

// The list-level algorithm and the set query must agree on any graph.
func TestResolveMatchesBidirectionalQuery(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	var users []models.User
	for i := 0; i < 12; i++ {
		users = append(users, testutil.NewUser(t, db, ""))
	}
	for _, from := range users {
		for _, to := range users {
			if from.ID != to.ID && rng.Intn(3) == 0 {
				testutil.NewConnection(t, db, from.ID, to.ID, rng.Intn(2) == 0)
			}
		}
	}

	sorted := cmpopts.SortSlices(func(a, b uint) bool { return a < b })
	for _, u := range users {
		requested, err := svc.Requested(ctx, u.ID)
		require.NoError(t, err)
		requestedBy, err := svc.RequestedBy(ctx, u.ID)
		require.NoError(t, err)

		queried, err := svc.ConfirmedContacts(ctx, u.ID, contacts.PolicyBidirectional)
		require.NoError(t, err)

		want := testutil.IDs(contacts.Resolve(requested, requestedBy))
		if diff := cmp.Diff(want, testutil.IDs(queried), sorted, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("user %d: contacts mismatch (-resolve +query):\n%s", u.ID, diff)
		}
	}
}

func TestConnections(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	bob := testutil.NewUser(t, db, "Bob")
	ben := testutil.NewUser(t, db, "Ben")
	theo := testutil.NewUser(t, db, "Theo")
	testutil.NewConnection(t, db, bob.ID, ben.ID, true)
	testutil.NewConnection(t, db, theo.ID, bob.ID, false)

	yes, no := true, false
	tests := []struct {
		name      string
		direction contacts.Direction
		accepted  *bool
		want      [][2]uint
	}{
		{name: "all", direction: contacts.DirectionAny, want: [][2]uint{{bob.ID, ben.ID}, {theo.ID, bob.ID}}},
		{name: "outgoing", direction: contacts.DirectionOutgoing, want: [][2]uint{{bob.ID, ben.ID}}},
		{name: "incoming", direction: contacts.DirectionIncoming, want: [][2]uint{{theo.ID, bob.ID}}},
		{name: "accepted", direction: contacts.DirectionAny, accepted: &yes, want: [][2]uint{{bob.ID, ben.ID}}},
		{name: "pending incoming", direction: contacts.DirectionIncoming, accepted: &no, want: [][2]uint{{theo.ID, bob.ID}}},
		{name: "accepted incoming", direction: contacts.DirectionIncoming, accepted: &yes, want: [][2]uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conns, err := svc.Connections(ctx, bob.ID, tt.direction, tt.accepted)
			require.NoError(t, err)

			got := [][2]uint{}
			for _, c := range conns {
				got = append(got, [2]uint{c.RequesterID, c.TargetID})
				assert.Equal(t, c.RequesterID, c.Requester.ID, "requester preloaded")
				assert.Equal(t, c.TargetID, c.Target.ID, "target preloaded")
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	_, err := svc.Connections(ctx, bob.ID, contacts.Direction("sideways"), nil)
	assert.ErrorIs(t, err, contacts.ErrInvalidDirection)
}

func TestUsers(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "   ")
	assert.Error(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateUser(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}

	page, total, err := svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Equal(t, []uint{3, 4}, testutil.IDs(page))

	u, err := svc.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "user-4", u.Name)

	_, err = svc.GetUser(ctx, 6)
	assert.ErrorIs(t, err, contacts.ErrUserNotFound)
}

type memCache struct {
	entries  map[string][]models.User
	versions map[string]int64
	gets     int
	failGet  bool
	// beforeSet runs once, right before the next Set is stored
	beforeSet func()
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]models.User{}, versions: map[string]int64{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]models.User, bool, error) {
	m.gets++
	if m.failGet {
		return nil, false, errors.New("cache unavailable")
	}
	u, ok := m.entries[key]
	return u, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, users []models.User) error {
	if hook := m.beforeSet; hook != nil {
		m.beforeSet = nil
		hook()
	}
	m.entries[key] = users
	return nil
}

func (m *memCache) Version(_ context.Context, key string) (int64, error) {
	return m.versions[key], nil
}

func (m *memCache) Bump(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.versions[k]++
	}
	return nil
}

func TestConfirmedContactsCache(t *testing.T) {
	cache := newMemCache()
	svc, db := setup(t, contacts.WithCache(cache))
	ctx := context.Background()
	bob := testutil.NewUser(t, db, "Bob")
	ben := testutil.NewUser(t, db, "Ben")

	got, err := svc.ConfirmedContacts(ctx, bob.ID, contacts.PolicyAccepted)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, cache.entries, fmt.Sprintf("contacts:%d:v0:accepted", bob.ID))

	_, err = svc.ConfirmedContacts(ctx, bob.ID, "")
	require.NoError(t, err)
	assert.Len(t, cache.entries, 1, "the default policy shares the cached entry")

	_, err = svc.RequestContact(ctx, bob.ID, ben.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cache.versions[fmt.Sprintf("contacts:%d:version", bob.ID)], "request invalidates")
	assert.EqualValues(t, 1, cache.versions[fmt.Sprintf("contacts:%d:version", ben.ID)])

	_, err = svc.ConfirmedContacts(ctx, ben.ID, contacts.PolicyAccepted)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, bob.ID, ben.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cache.versions[fmt.Sprintf("contacts:%d:version", ben.ID)], "accept invalidates both users")

	got, err = svc.ConfirmedContacts(ctx, ben.ID, contacts.PolicyAccepted)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, testutil.IDs(got))

	t.Run("cache failures fall back to the database", func(t *testing.T) {
		cache.failGet = true
		defer func() { cache.failGet = false }()
		got, err := svc.ConfirmedContacts(ctx, ben.ID, contacts.PolicyAccepted)
		require.NoError(t, err)
		assert.Equal(t, []uint{bob.ID}, testutil.IDs(got))
	})
}

// A write that commits between the query and the cache fill must not leave
// the older result behind for later readers.
func TestConfirmedContactsCacheWriteDuringFill(t *testing.T) {
	cache := newMemCache()
	svc, db := setup(t, contacts.WithCache(cache))
	ctx := context.Background()
	bob := testutil.NewUser(t, db, "Bob")
	ben := testutil.NewUser(t, db, "Ben")
	testutil.NewConnection(t, db, bob.ID, ben.ID, false)

	cache.beforeSet = func() {
		_, err := svc.AcceptRequest(ctx, bob.ID, ben.ID)
		require.NoError(t, err)
	}

	first, err := svc.ConfirmedContacts(ctx, bob.ID, contacts.PolicyAccepted)
	require.NoError(t, err)
	assert.Empty(t, first, "computed before the accept committed")
	assert.True(t, findConn(t, db, bob.ID, ben.ID).Accepted)

	later, err := svc.ConfirmedContacts(ctx, bob.ID, contacts.PolicyAccepted)
	require.NoError(t, err)
	assert.Equal(t, []uint{ben.ID}, testutil.IDs(later))

	cached, found, err := cache.Get(ctx, fmt.Sprintf("contacts:%d:v1:accepted", bob.ID))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []uint{ben.ID}, testutil.IDs(cached))
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestEventsArePublishedAfterWrites(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, db := setup(t, contacts.WithPublisher(pub))
	ctx := context.Background()
	bob := testutil.NewUser(t, db, "Bob")
	ben := testutil.NewUser(t, db, "Ben")

	_, err := svc.RequestContact(ctx, bob.ID, ben.ID)
	require.NoError(t, err, "publish failures must not fail the write")
	_, err = svc.AcceptRequest(ctx, bob.ID, ben.ID)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, bob.ID, ben.ID)
	require.NoError(t, err)
	_, err = svc.RequestContact(ctx, bob.ID, ben.ID)
	require.Error(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.ContactRequested, pub.events[0].Type)
	assert.False(t, pub.events[0].Accepted)
	assert.Equal(t, events.ContactAccepted, pub.events[1].Type)
	assert.True(t, pub.events[1].Accepted)
	assert.Equal(t, bob.ID, pub.events[1].RequesterID)
	assert.Equal(t, ben.ID, pub.events[1].TargetID)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]contacts.Policy{
		"accepted":      contacts.PolicyAccepted,
		" Mutual ":      contacts.PolicyMutualAccepted,
		"BIDIRECTIONAL": contacts.PolicyBidirectional,
	} {
		got, err := contacts.ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := contacts.ParsePolicy("")
	assert.ErrorIs(t, err, contacts.ErrInvalidPolicy)
}
