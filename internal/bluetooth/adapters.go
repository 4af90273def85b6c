package bluetooth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"beaconscan/internal/util"
)

type AdapterInfo struct {
	ID      string // e.g. hci0
	Address string
	Name    string
	Powered bool
}

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// ListAdapters returns the BlueZ adapters known on the system bus, ordered
// by id.
func ListAdapters(ctx context.Context) ([]AdapterInfo, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("dbus system bus: %w", err)
	}
	managed, err := getManagedObjects(ctx, conn)
	if err != nil {
		return nil, err
	}
	return adaptersFromManaged(managed), nil
}

type PreflightOptions struct {
	// RestartBluetoothService restarts bluetooth.service once when the adapter
	// is missing. Requires root and systemctl.
	RestartBluetoothService bool
}

// Preflight verifies that adapterID is present in BlueZ and powers it on.
func Preflight(ctx context.Context, adapterID string, opt PreflightOptions) error {
	adapterID = strings.TrimSpace(adapterID)
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("dbus system bus: %w", err)
	}

	info, ok := findAdapter(ctx, conn, adapterID)
	if !ok && opt.RestartBluetoothService && util.IsRoot() {
		util.Linef("[PREFLIGHT]", util.ColorYellow, "adapter %s missing -> restarting bluetooth", adapterID)
		_ = util.RestartService(ctx, "bluetooth")
		t := time.NewTimer(1500 * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		info, ok = findAdapter(ctx, conn, adapterID)
	}
	if !ok {
		return fmt.Errorf("adapter %s not found in bluez", adapterID)
	}

	if !info.Powered {
		path := dbus.ObjectPath("/org/bluez/" + adapterID)
		err := conn.Object("org.bluez", path).CallWithContext(ctx, "org.freedesktop.DBus.Properties.Set", 0,
			"org.bluez.Adapter1", "Powered", dbus.MakeVariant(true)).Err
		if err != nil {
			return fmt.Errorf("power on %s: %w", adapterID, err)
		}
		util.Linef("[PREFLIGHT]", util.ColorGray, "adapter %s powered on", adapterID)
	}
	return nil
}

func findAdapter(ctx context.Context, conn *dbus.Conn, adapterID string) (AdapterInfo, bool) {
	managed, err := getManagedObjects(ctx, conn)
	if err != nil {
		return AdapterInfo{}, false
	}
	for _, a := range adaptersFromManaged(managed) {
		if a.ID == adapterID {
			return a, true
		}
	}
	return AdapterInfo{}, false
}

func getManagedObjects(ctx context.Context, conn *dbus.Conn) (managedObjects, error) {
	root := conn.Object("org.bluez", dbus.ObjectPath("/"))
	call := root.CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("bluez managed objects: %w", call.Err)
	}
	var managed managedObjects
	if err := call.Store(&managed); err != nil {
		return nil, fmt.Errorf("bluez managed objects: %w", err)
	}
	return managed, nil
}

func adaptersFromManaged(managed managedObjects) []AdapterInfo {
	var out []AdapterInfo
	for path, ifaces := range managed {
		props, ok := ifaces["org.bluez.Adapter1"]
		if !ok {
			continue
		}
		p := string(path)
		if !strings.HasPrefix(p, "/org/bluez/") {
			continue
		}
		info := AdapterInfo{ID: strings.TrimPrefix(p, "/org/bluez/")}
		if v, ok := props["Address"]; ok {
			if s, ok := v.Value().(string); ok {
				info.Address = strings.ToUpper(strings.TrimSpace(s))
			}
		}
		if v, ok := props["Alias"]; ok {
			if s, ok := v.Value().(string); ok {
				info.Name = s
			}
		}
		if v, ok := props["Powered"]; ok {
			if b, ok := v.Value().(bool); ok {
				info.Powered = b
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// deviceTxPowers returns the TxPower BlueZ recorded for each device under
// adapterID, keyed by upper-case address.
func deviceTxPowers(ctx context.Context, conn *dbus.Conn, adapterID string) (map[string]int, error) {
	managed, err := getManagedObjects(ctx, conn)
	if err != nil {
		return nil, err
	}
	return txPowersFromManaged(managed, adapterID), nil
}

func txPowersFromManaged(managed managedObjects, adapterID string) map[string]int {
	prefix := "/org/bluez/" + adapterID + "/"
	out := map[string]int{}
	for path, ifaces := range managed {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		dev, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		addr, _ := dev["Address"].Value().(string)
		txp := intProp(dev, "TxPower")
		if addr == "" || txp == nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(addr))] = *txp
	}
	return out
}

func intProp(props map[string]dbus.Variant, key string) *int {
	v, ok := props[key]
	if !ok {
		return nil
	}
	var n int
	switch x := v.Value().(type) {
	case int16:
		n = int(x)
	case int32:
		n = int(x)
	case int:
		n = x
	default:
		return nil
	}
	return &n
}
