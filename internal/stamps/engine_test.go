package stamps

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayoung-dev/stamprally/internal/models"
)

func TestRedeemCreatesCardAndEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.createUser(t, "010-1111-0001")
	eventID := env.createEvent(t, "opening ceremony", future())
	claimID := env.createClaim(t, "STMP-OPEN", eventID, intPtr(5), future())

	result, err := env.engine.Redeem(ctx, "STMP-OPEN", userID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.EntryCount)
	assert.Equal(t, models.CardCapacity-1, result.Remaining)
	assert.False(t, result.CardFull)

	assert.Equal(t, 1, env.entryCount(t, result.CardID))
	assert.Equal(t, 1, env.claimUses(t, claimID))

	var redemptions int64
	require.NoError(t, env.db.Model(&models.Redemption{}).
		Where("claimable_stamp_id = ? AND user_id = ?", claimID, userID).
		Count(&redemptions).Error)
	assert.EqualValues(t, 1, redemptions)
}

func TestRedeemSameCodeTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.createUser(t, "010-1111-0002")
	eventID := env.createEvent(t, "workshop", future())
	claimID := env.createClaim(t, "STMP-WORK", eventID, intPtr(5), future())

	first, err := env.engine.Redeem(ctx, "STMP-WORK", userID)
	require.NoError(t, err)

	_, err = env.engine.Redeem(ctx, "STMP-WORK", userID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	assert.Equal(t, 1, env.entryCount(t, first.CardID))
	assert.Equal(t, 1, env.claimUses(t, claimID))
}

func TestRedeemUsageCeiling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := env.createUser(t, "010-1111-0003")
	u2 := env.createUser(t, "010-1111-0004")
	eventID := env.createEvent(t, "flash event", future())
	claimID := env.createClaim(t, "STMP-ONE", eventID, intPtr(1), future())

	_, err := env.engine.Redeem(ctx, "STMP-ONE", u1)
	require.NoError(t, err)

	// Same user again hits the redemption record first.
	_, err = env.engine.Redeem(ctx, "STMP-ONE", u1)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	// A different user hits the use limit.
	_, err = env.engine.Redeem(ctx, "STMP-ONE", u2)
	assert.ErrorIs(t, err, ErrCodeExhausted)

	assert.Equal(t, 1, env.claimUses(t, claimID))
}

func TestRedeemExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.createUser(t, "010-1111-0005")
	eventID := env.createEvent(t, "old event", future())
	env.createClaim(t, "STMP-OLD", eventID, nil, time.Now().Add(-24*time.Hour))

	_, err := env.engine.Redeem(ctx, "STMP-OLD", userID)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestRedeemUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	userID := env.createUser(t, "010-1111-0006")

	_, err := env.engine.Redeem(context.Background(), "STMP-NOPE", userID)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRedeemDuplicateEventRollsBackFully(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.createUser(t, "010-1111-0007")
	eventID := env.createEvent(t, "double stamped", future())
	env.createClaim(t, "STMP-A", eventID, nil, future())
	secondID := env.createClaim(t, "STMP-B", eventID, nil, future())

	first, err := env.engine.Redeem(ctx, "STMP-A", userID)
	require.NoError(t, err)

	// A second code for the same event must not stamp the same card, and
	// the failed attempt must leave no trace: no usage tick, no redemption.
	_, err = env.engine.Redeem(ctx, "STMP-B", userID)
	assert.ErrorIs(t, err, ErrDuplicateStampForEvent)

	assert.Equal(t, 1, env.entryCount(t, first.CardID))
	assert.Equal(t, 0, env.claimUses(t, secondID))

	var redemptions int64
	require.NoError(t, env.db.Model(&models.Redemption{}).
		Where("claimable_stamp_id = ?", secondID).
		Count(&redemptions).Error)
	assert.EqualValues(t, 0, redemptions)
}

func TestRedeemOntoFullCardIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.createUser(t, "010-1111-0008")
	env.fillCard(t, userID)

	eventID := env.createEvent(t, "one too many", future())
	claimID := env.createClaim(t, "STMP-FULL", eventID, nil, future())

	_, err := env.engine.Redeem(ctx, "STMP-FULL", userID)
	assert.ErrorIs(t, err, ErrCardFull)
	assert.Equal(t, 0, env.claimUses(t, claimID))

	cardID, err := env.cards.GetOrCreateActiveCard(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.CardCapacity, env.entryCount(t, cardID))
}

func TestRedeemUnlimitedCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	eventID := env.createEvent(t, "open house", future())
	claimID := env.createClaim(t, "STMP-ANY", eventID, nil, future())

	for i, phone := range []string{"010-1111-0009", "010-1111-0010", "010-1111-0011"} {
		userID := env.createUser(t, phone)
		result, err := env.engine.Redeem(ctx, "STMP-ANY", userID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.EntryCount, "user %d", i)
	}

	assert.Equal(t, 3, env.claimUses(t, claimID))
}

func TestRedeemTenthStampReportsFullCard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.createUser(t, "010-1111-0012")
	for i := 0; i < models.CardCapacity-1; i++ {
		_, err := env.admin.GrantStamp(ctx, userID, "setup")
		require.NoError(t, err)
	}

	eventID := env.createEvent(t, "final stamp", future())
	env.createClaim(t, "STMP-LAST", eventID, nil, future())

	result, err := env.engine.Redeem(ctx, "STMP-LAST", userID)
	require.NoError(t, err)
	assert.Equal(t, models.CardCapacity, result.EntryCount)
	assert.Equal(t, 0, result.Remaining)
	assert.True(t, result.CardFull)
}

func TestConcurrentRedeemSameCodeAndUser(t *testing.T) {
	env := newTestEnv(t)

	userID := env.createUser(t, "010-1111-0013")
	eventID := env.createEvent(t, "race", future())
	claimID := env.createClaim(t, "STMP-RACE", eventID, nil, future())

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Redeem(context.Background(), "STMP-RACE", userID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, env.claimUses(t, claimID))

	var entries int64
	require.NoError(t, env.db.Model(&models.StampEntry{}).
		Where("user_id = ?", userID).Count(&entries).Error)
	assert.EqualValues(t, 1, entries)
}

func TestConcurrentRedeemUsageCeiling(t *testing.T) {
	env := newTestEnv(t)

	eventID := env.createEvent(t, "limited drop", future())
	claimID := env.createClaim(t, "STMP-DROP", eventID, intPtr(3), future())

	const attempts = 6
	userIDs := make([]uuid.UUID, attempts)
	for i := range userIDs {
		userIDs[i] = env.createUser(t, "010-1111-10"+string(rune('0'+i)))
	}

	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Redeem(context.Background(), "STMP-DROP", userIDs[i])
		}(i)
	}
	wg.Wait()

	successes, exhausted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			assert.ErrorIs(t, err, ErrCodeExhausted)
			exhausted++
		}
	}
	assert.Equal(t, 3, successes)
	assert.Equal(t, 3, exhausted)
	assert.Equal(t, 3, env.claimUses(t, claimID))
}
