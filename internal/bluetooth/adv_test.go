package bluetooth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tg "tinygo.org/x/bluetooth"

	"beaconscan/internal/beacon"
)

func TestShortUUID(t *testing.T) {
	assert.Equal(t, "feaa", shortUUID("0000FEAA-0000-1000-8000-00805F9B34FB"))
	assert.Equal(t, "ffe1", shortUUID("0000ffe1-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "e2c56db5-dffb-48d2-b060-d0f5a71096e0", shortUUID("E2C56DB5-DFFB-48D2-B060-D0F5A71096E0"))
	assert.Equal(t, "0001feaa-0000-1000-8000-00805f9b34fb", shortUUID("0001feaa-0000-1000-8000-00805f9b34fb"))
}

func TestTxPowerFromAD(t *testing.T) {
	adv := []byte{
		0x02, 0x01, 0x06, // flags
		0x02, 0x0a, 0xf4, // tx power -12
		0x03, 0x03, 0xaa, 0xfe,
	}
	tx := txPowerFromAD(adv)
	require.NotNil(t, tx)
	assert.Equal(t, -12, *tx)

	assert.Nil(t, txPowerFromAD([]byte{0x02, 0x01, 0x06}))
	assert.Nil(t, txPowerFromAD([]byte{0x05, 0x0a}), "truncated structure")
	assert.Nil(t, txPowerFromAD(nil))
}

func TestDeviceID(t *testing.T) {
	assert.Equal(t, "c47c8d601122", deviceID("C4:7C:8D:60:11:22"))
}

func TestNewAdvertisement(t *testing.T) {
	mfg := []tg.ManufacturerDataElement{{
		CompanyID: 0x004c,
		Data: []byte{
			0x02, 0x15,
			0xe2, 0xc5, 0x6d, 0xb5, 0xdf, 0xfb, 0x48, 0xd2,
			0xb0, 0x60, 0xd0, 0xf5, 0xa7, 0x10, 0x96, 0xe0,
			0x00, 0x01, 0x00, 0x02, 0xc5,
		},
	}}
	svc := []tg.ServiceDataElement{{UUID: tg.New16BitUUID(0xfe9a), Data: []byte{0x22}}}

	a := newAdvertisement("C4:7C:8D:60:11:22", -70, " beacon ", mfg, svc, []byte{0x02, 0x0a, 0x04}, intPtr(-20))
	assert.Equal(t, "c47c8d601122", a.ID)
	assert.Equal(t, "c4:7c:8d:60:11:22", a.Address)
	assert.Equal(t, "beacon", a.LocalName)
	assert.Equal(t, -70, a.RSSI)
	require.NotNil(t, a.TxPowerLevel)
	assert.Equal(t, 4, *a.TxPowerLevel)
	assert.Equal(t, []byte{0x4c, 0x00, 0x02, 0x15}, a.ManufacturerData[:4])
	require.Len(t, a.ServiceData, 1)
	assert.Equal(t, "fe9a", a.ServiceData[0].UUID)

	assert.Equal(t, beacon.TypeIBeacon, beacon.Classify(a))
	r := beacon.Parse(a)
	require.NotNil(t, r)
	assert.Equal(t, uint16(1), r.Payload.(*beacon.IBeacon).Major)
}

func TestNewAdvertisement_NoSections(t *testing.T) {
	a := newAdvertisement("AA:BB:CC:DD:EE:FF", -90, "", nil, nil, nil, nil)
	assert.Nil(t, a.ManufacturerData)
	assert.Nil(t, a.ServiceData)
	assert.Nil(t, a.TxPowerLevel)
	assert.Equal(t, beacon.TypeUnknown, beacon.Classify(a))
}

func TestAddressKind(t *testing.T) {
	assert.Equal(t, "public", addressKind(false, "C4:7C:8D:60:11:22"))
	assert.Equal(t, "static_random", addressKind(true, "C4:7C:8D:60:11:22"))
	assert.Equal(t, "resolvable_private", addressKind(true, "4A:00:00:00:00:01"))
	assert.Equal(t, "non_resolvable_private", addressKind(true, "1A:00:00:00:00:01"))
	assert.Equal(t, "reserved", addressKind(true, "8A:00:00:00:00:01"))
	assert.Equal(t, "random", addressKind(true, "x"))
}

func intPtr(v int) *int { return &v }

func TestNewAdvertisement_TxPowerHint(t *testing.T) {
	// BlueZ scan results carry no raw bytes.
	a := newAdvertisement("AA:BB:CC:DD:EE:FF", -60, "", nil, nil, nil, intPtr(-8))
	require.NotNil(t, a.TxPowerLevel)
	assert.Equal(t, -8, *a.TxPowerLevel)

	a = newAdvertisement("AA:BB:CC:DD:EE:FF", -60, "", nil, nil, []byte{0x02, 0x01, 0x06}, intPtr(-8))
	require.NotNil(t, a.TxPowerLevel)
	assert.Equal(t, -8, *a.TxPowerLevel)
}

func TestPickManufacturerData(t *testing.T) {
	_, ok := pickManufacturerData(nil)
	assert.False(t, ok)

	apple := tg.ManufacturerDataElement{CompanyID: 0x004c, Data: []byte{0x02, 0x15}}
	estimote := tg.ManufacturerDataElement{CompanyID: 0x015d, Data: []byte{0x01}}
	other := tg.ManufacturerDataElement{CompanyID: 0x0006, Data: []byte{0x01}}
	higher := tg.ManufacturerDataElement{CompanyID: 0x0075, Data: []byte{0x42}}

	for _, order := range [][]tg.ManufacturerDataElement{
		{other, apple, estimote},
		{estimote, other, apple},
		{apple, estimote, other},
	} {
		got, ok := pickManufacturerData(order)
		require.True(t, ok)
		assert.Equal(t, uint16(0x004c), got.CompanyID)
	}

	got, _ := pickManufacturerData([]tg.ManufacturerDataElement{higher, estimote})
	assert.Equal(t, uint16(0x015d), got.CompanyID)

	got, _ = pickManufacturerData([]tg.ManufacturerDataElement{higher, other})
	assert.Equal(t, uint16(0x0006), got.CompanyID)
	got, _ = pickManufacturerData([]tg.ManufacturerDataElement{other, higher})
	assert.Equal(t, uint16(0x0006), got.CompanyID)
}
