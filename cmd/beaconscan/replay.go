package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"beaconscan/internal/beacon"
)

// replayRecord is one line of a replay file. Byte fields are hex strings;
// spaces and colons between pairs are ignored.
type replayRecord struct {
	ID               string `json:"id"`
	Address          string `json:"address"`
	LocalName        string `json:"localName"`
	TxPowerLevel     *int   `json:"txPowerLevel"`
	RSSI             int    `json:"rssi"`
	ManufacturerData string `json:"manufacturerData"`
	ServiceData      []struct {
		UUID string `json:"uuid"`
		Data string `json:"data"`
	} `json:"serviceData"`
}

func replayFile(ctx context.Context, path string, handle func(*beacon.Advertisement)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return replay(ctx, f, handle)
}

// replay feeds each advertisement in r to handle and returns how many were
// handled. Blank lines and lines starting with '#' are skipped.
func replay(ctx context.Context, r io.Reader, handle func(*beacon.Advertisement)) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return n, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a, err := parseReplayLine(line)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		handle(a)
		n++
	}
	return n, sc.Err()
}

func parseReplayLine(line string) (*beacon.Advertisement, error) {
	var rec replayRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, err
	}
	mfg, err := decodeHex(rec.ManufacturerData)
	if err != nil {
		return nil, fmt.Errorf("manufacturerData: %w", err)
	}
	a := &beacon.Advertisement{
		ID:               rec.ID,
		Address:          rec.Address,
		LocalName:        rec.LocalName,
		TxPowerLevel:     rec.TxPowerLevel,
		RSSI:             rec.RSSI,
		ManufacturerData: mfg,
	}
	if a.ID == "" {
		a.ID = strings.ToLower(strings.ReplaceAll(a.Address, ":", ""))
	}
	for _, sd := range rec.ServiceData {
		data, err := decodeHex(sd.Data)
		if err != nil {
			return nil, fmt.Errorf("serviceData %s: %w", sd.UUID, err)
		}
		a.ServiceData = append(a.ServiceData, beacon.ServiceData{UUID: strings.ToLower(strings.TrimSpace(sd.UUID)), Data: data})
	}
	return a, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
