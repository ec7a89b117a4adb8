package stamps

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/events"
	"github.com/nayoung-dev/stamprally/internal/models"
	"github.com/nayoung-dev/stamprally/internal/notify"
)

// testEnv wires the full service stack against an in-memory database.
// A single connection keeps concurrent transactions serialized the same
// way SQLite serializes writers on disk.
type testEnv struct {
	db      *gorm.DB
	store   *Store
	cards   *CardManager
	engine  *Engine
	issuer  *Issuer
	admin   *Admin
	queries *Queries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.StampCard{},
		&models.StampEntry{},
		&models.ClaimableStamp{},
		&models.Redemption{},
		&models.Coupon{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := NewStore(db)
	cards := NewCardManager(store)
	catalog := events.NewGormCatalog(db)
	sink := notify.NewLogSink(log)

	return &testEnv{
		db:      db,
		store:   store,
		cards:   cards,
		engine:  NewEngine(store, cards, catalog, sink, log),
		issuer:  NewIssuer(store, cards, sink, log, IssuerConfig{Description: "test reward"}),
		admin:   NewAdmin(store, cards, catalog, sink, log),
		queries: NewQueries(store),
	}
}

func (env *testEnv) createUser(t *testing.T, phone string) uuid.UUID {
	t.Helper()
	user := models.User{PhoneNumber: phone}
	require.NoError(t, env.db.Create(&user).Error)
	return user.ID
}

func (env *testEnv) createEvent(t *testing.T, name string, endDate time.Time) uuid.UUID {
	t.Helper()
	event := models.Event{Name: name, EndDate: endDate}
	require.NoError(t, env.db.Create(&event).Error)
	return event.ID
}

func (env *testEnv) createClaim(t *testing.T, code string, eventID uuid.UUID, maxUses *int, expiresAt time.Time) uuid.UUID {
	t.Helper()
	claim := models.ClaimableStamp{
		ClaimCode: code,
		EventID:   eventID,
		MaxUses:   maxUses,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, env.db.Create(&claim).Error)
	return claim.ID
}

// fillCard grants admin stamps until the user's card is full.
func (env *testEnv) fillCard(t *testing.T, userID uuid.UUID) {
	t.Helper()
	for i := 0; i < models.CardCapacity; i++ {
		_, err := env.admin.GrantStamp(context.Background(), userID, "setup")
		require.NoError(t, err)
	}
}

func (env *testEnv) entryCount(t *testing.T, cardID uuid.UUID) int {
	t.Helper()
	count, err := env.store.countEntries(env.db, cardID)
	require.NoError(t, err)
	return count
}

func (env *testEnv) claimUses(t *testing.T, claimID uuid.UUID) int {
	t.Helper()
	var claim models.ClaimableStamp
	require.NoError(t, env.db.First(&claim, "id = ?", claimID).Error)
	return claim.CurrentUses
}

func intPtr(n int) *int { return &n }

func future() time.Time { return time.Now().Add(24 * time.Hour) }
