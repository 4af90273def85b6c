package bluetooth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	tg "tinygo.org/x/bluetooth"

	"beaconscan/internal/beacon"
	"beaconscan/internal/util"
)

// AdvertisementHandler receives every advertisement seen during a scan. It is
// called from the scanning goroutine and must not block for long.
type AdvertisementHandler func(a *beacon.Advertisement)

type Scanner struct {
	adapterID string
	adapter   *tg.Adapter
	window    time.Duration
	log       zerolog.Logger

	// bus is nil when the system bus is unreachable; tx power hints are then
	// unavailable.
	bus      *dbus.Conn
	mu       sync.RWMutex
	txPowers map[string]int
}

// NewScanner enables the adapter (e.g. "hci0") for scanning. Each scan window
// lasts window; BlueZ reports a device only once per discovery session, so
// scanning is restarted between windows.
func NewScanner(adapterID string, window time.Duration, log zerolog.Logger) (*Scanner, error) {
	adapterID = strings.TrimSpace(adapterID)
	if window <= 0 {
		window = 3 * time.Second
	}
	adapter := tg.NewAdapter(adapterID)
	if err := adapter.Enable(); err != nil {
		return nil, err
	}
	s := &Scanner{
		adapterID: adapterID,
		adapter:   adapter,
		window:    window,
		log:       log.With().Str("adapter", adapterID).Logger(),
	}
	if bus, err := dbus.SystemBus(); err == nil {
		s.bus = bus
	} else {
		s.log.Warn().Err(err).Msg("no system bus, tx power hints disabled")
	}
	return s, nil
}

// refreshTxPowers snapshots the TxPower BlueZ keeps for known devices. It runs
// between scan windows, never from the scan callback.
func (s *Scanner) refreshTxPowers(ctx context.Context) {
	if s.bus == nil {
		return
	}
	m, err := deviceTxPowers(ctx, s.bus, s.adapterID)
	if err != nil {
		s.log.Debug().Err(err).Msg("tx power refresh")
		return
	}
	s.mu.Lock()
	s.txPowers = m
	s.mu.Unlock()
}

func (s *Scanner) txPowerHint(address string) *int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.txPowers[strings.ToUpper(address)]
	if !ok {
		return nil
	}
	return &v
}

// Run scans until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, handle AdvertisementHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.refreshTxPowers(ctx)
		err := s.scanFor(ctx, s.window, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Error().Err(err).Msg("scan failed")
			util.Linef("[ERROR]", util.ColorYellow, "scan failed on %s: %v", s.adapterID, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}
	}
}

func (s *Scanner) scanFor(ctx context.Context, d time.Duration, handle AdvertisementHandler) error {
	// A previous scan may still be considered active by BlueZ.
	_ = s.adapter.StopScan()
	time.Sleep(150 * time.Millisecond)

	scanErrCh := make(chan error, 1)
	go func() {
		err := s.adapter.Scan(func(_ *tg.Adapter, res tg.ScanResult) {
			if e := s.log.Debug(); e.Enabled() {
				e.Str("address", res.Address.String()).
					Str("address_kind", addressKind(res.Address.IsRandom(), res.Address.String())).
					Int16("rssi", res.RSSI).
					Msg("advertisement")
			}
			handle(newAdvertisement(
				res.Address.String(),
				int(res.RSSI),
				res.LocalName(),
				res.ManufacturerData(),
				res.ServiceData(),
				res.Bytes(),
				s.txPowerHint(res.Address.String()),
			))
		})
		scanErrCh <- err
	}()

	select {
	case <-ctx.Done():
		_ = s.adapter.StopScan()
		select {
		case <-scanErrCh:
		case <-time.After(8 * time.Second):
		}
		return ctx.Err()
	case <-time.After(d):
		_ = s.adapter.StopScan()
		select {
		case <-scanErrCh:
		case <-time.After(8 * time.Second):
			return errors.New("scan stop timeout (bluez still discovering)")
		}
		return nil
	case err := <-scanErrCh:
		_ = s.adapter.StopScan()
		return err
	}
}
