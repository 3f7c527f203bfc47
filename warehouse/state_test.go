package warehouse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/loyalty"
	"github.com/warp/wholesale-engine/warehouse"
)

// busy builds a warehouse exercising every kind of state.
func busy(t *testing.T) *warehouse.Warehouse {
	t.Helper()
	w := stocked(t)
	withKit(t, w)
	_, err := w.ToggleNotifications("Y", "P1")
	require.NoError(t, err)
	_, err = w.RegisterAcquisition("X", "KIT", dec("250"), 2)
	require.NoError(t, err)
	_, err = w.RegisterAcquisition("X", "P1", dec("75.5"), 3)
	require.NoError(t, err)
	paid, err := w.RegisterCreditSale("X", "P1", 10, 4)
	require.NoError(t, err)
	_, err = w.RegisterCreditSale("Y", "KIT", 2, 3)
	require.NoError(t, err)
	_, err = w.RegisterBreakdownSale("Y", "KIT", 1)
	require.Error(t, err, "all kits were sold")
	require.NoError(t, w.AdvanceDate(4))
	require.NoError(t, w.ReceivePayment(paid.ID()))
	return w
}

func TestState_RoundTrip(t *testing.T) {
	// GIVEN
	w := busy(t)
	payload, err := warehouse.EncodeState(w.Export())
	require.NoError(t, err)

	// WHEN
	decoded, err := warehouse.DecodeState(payload)
	require.NoError(t, err)
	restored, err := warehouse.FromState(decoded)
	require.NoError(t, err)

	// THEN: the restored warehouse encodes identically
	again, err := warehouse.EncodeState(restored.Export())
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(again))

	assert.Equal(t, w.Now(), restored.Now())
	assert.True(t, w.AvailableBalance().Equal(restored.AvailableBalance()))
	assert.True(t, w.AccountingBalance().Equal(restored.AccountingBalance()))
	assert.Len(t, restored.Transactions(), len(w.Transactions()))

	y, err := restored.Partner("Y")
	require.NoError(t, err)
	assert.True(t, y.IsSubscribed("p1"))
	assert.Len(t, y.PendingNotifications(), 1)

	x, err := restored.Partner("X")
	require.NoError(t, err)
	assert.Equal(t, loyalty.TierSelection, x.Status().Tier)

	sales, err := restored.PartnerSales("Y")
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestState_RestoredWarehouseContinuesIDs(t *testing.T) {
	w := busy(t)
	restored, err := warehouse.FromState(w.Export())
	require.NoError(t, err)

	tx, err := restored.RegisterAcquisition("X", "P1", dec("1"), 1)
	require.NoError(t, err)

	assert.Equal(t, generic.TransactionID(len(w.Transactions())), tx.ID())
}

func TestState_RejectsInconsistentSnapshot(t *testing.T) {
	s := busy(t).Export()
	s.Transactions[0].Partner = "ghost"

	_, err := warehouse.FromState(s)

	assert.ErrorIs(t, err, generic.ErrUnknownPartner)
}

func TestState_RejectsBrokenNextID(t *testing.T) {
	s := busy(t).Export()
	s.NextID++

	_, err := warehouse.FromState(s)

	assert.Error(t, err)
}

func TestRestore_KeepsOptions(t *testing.T) {
	// GIVEN: an empty warehouse with a custom delivery method
	var delivered []string
	w := warehouse.New(warehouse.WithDeliveryMethod(warehouse.DeliveryFunc(
		func(p *warehouse.Partner, n warehouse.Notification) {
			delivered = append(delivered, string(p.Key())+":"+n.String())
		})))

	// WHEN: the busy state is restored into it
	require.NoError(t, w.Restore(busy(t).Export()))

	// THEN: the contents are replaced and delivery still goes through the option
	assert.Equal(t, generic.Day(4), w.Now())
	assert.Len(t, w.Transactions(), 5)
	assert.Equal(t, loyalty.TierSelection, mustPartner(t, w, "X").Status().Tier)
	_, err := w.RegisterAcquisition("X", "P1", dec("10"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y:BARGAIN|P1|10"}, delivered)
}

func TestRestore_FailureLeavesWarehouseUnchanged(t *testing.T) {
	w := stocked(t)
	bad := busy(t).Export()
	bad.Transactions[0].Partner = "ghost"

	err := w.Restore(bad)

	assert.ErrorIs(t, err, generic.ErrUnknownPartner)
	assert.Len(t, w.Transactions(), 1)
	assertDec(t, "-1000", w.AvailableBalance())
}

func mustPartner(t *testing.T, w *warehouse.Warehouse, key generic.PartnerKey) *warehouse.Partner {
	t.Helper()
	p, err := w.Partner(key)
	require.NoError(t, err)
	return p
}

func TestDecodeState_Garbage(t *testing.T) {
	_, err := warehouse.DecodeState([]byte("not json"))
	assert.Error(t, err)
}
