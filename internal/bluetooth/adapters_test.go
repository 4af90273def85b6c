package bluetooth

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestAdaptersFromManaged(t *testing.T) {
	managed := managedObjects{
		"/org/bluez/hci1": {
			"org.bluez.Adapter1": {
				"Address": dbus.MakeVariant("00:1a:7d:da:71:13"),
				"Alias":   dbus.MakeVariant("usb dongle"),
				"Powered": dbus.MakeVariant(false),
			},
		},
		"/org/bluez/hci0": {
			"org.bluez.Adapter1": {
				"Address": dbus.MakeVariant("B8:27:EB:00:00:01"),
				"Powered": dbus.MakeVariant(true),
			},
		},
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF": {
			"org.bluez.Device1": {
				"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
			},
		},
		"/org/bluez": {
			"org.bluez.AgentManager1": {},
		},
	}

	got := adaptersFromManaged(managed)
	assert.Equal(t, []AdapterInfo{
		{ID: "hci0", Address: "B8:27:EB:00:00:01", Powered: true},
		{ID: "hci1", Address: "00:1A:7D:DA:71:13", Name: "usb dongle", Powered: false},
	}, got)
}

func TestTxPowersFromManaged(t *testing.T) {
	managed := managedObjects{
		"/org/bluez/hci0": {
			"org.bluez.Adapter1": {"Address": dbus.MakeVariant("B8:27:EB:00:00:01")},
		},
		"/org/bluez/hci0/dev_C4_7C_8D_60_11_22": {
			"org.bluez.Device1": {
				"Address": dbus.MakeVariant("c4:7c:8d:60:11:22"),
				"TxPower": dbus.MakeVariant(int16(-12)),
			},
		},
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF": {
			"org.bluez.Device1": {
				"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
				"RSSI":    dbus.MakeVariant(int16(-70)),
			},
		},
		"/org/bluez/hci1/dev_11_22_33_44_55_66": {
			"org.bluez.Device1": {
				"Address": dbus.MakeVariant("11:22:33:44:55:66"),
				"TxPower": dbus.MakeVariant(int16(4)),
			},
		},
	}

	assert.Equal(t, map[string]int{"C4:7C:8D:60:11:22": -12}, txPowersFromManaged(managed, "hci0"))
	assert.Equal(t, map[string]int{"11:22:33:44:55:66": 4}, txPowersFromManaged(managed, "hci1"))
	assert.Empty(t, txPowersFromManaged(managed, "hci2"))
}
