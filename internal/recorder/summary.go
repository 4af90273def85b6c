package recorder

import (
	"fmt"
	"strings"

	"beaconscan/internal/beacon"
)

// Summary renders the interesting fields of a payload on one line.
func Summary(p beacon.Payload) string {
	switch v := p.(type) {
	case *beacon.IBeacon:
		return fmt.Sprintf("uuid=%s major=%d minor=%d power=%d", v.UUID, v.Major, v.Minor, v.TxPower)
	case *beacon.EddystoneUID:
		return fmt.Sprintf("namespace=%s instance=%s power=%d", v.Namespace, v.Instance, v.TxPower)
	case *beacon.EddystoneURL:
		return fmt.Sprintf("url=%s power=%d", v.URL, v.TxPower)
	case *beacon.EddystoneTLM:
		return fmt.Sprintf("battery=%dmV temp=%.2fC adv=%d uptime=%.1fs", v.BatteryVoltage, v.Temperature, v.AdvCnt, float64(v.SecCnt)/10)
	case *beacon.EddystoneEID:
		return fmt.Sprintf("eid=%s power=%d", v.EID, v.TxPower)
	case *beacon.EstimoteTelemetry:
		parts := []string{"id=" + v.ID, "subframe=" + v.Subframe}
		if v.Temperature != nil {
			parts = append(parts, fmt.Sprintf("temp=%.2fC", *v.Temperature))
		}
		if v.BatteryVoltage != nil {
			parts = append(parts, fmt.Sprintf("battery=%dmV", *v.BatteryVoltage))
		}
		if v.Moving != nil {
			parts = append(parts, fmt.Sprintf("moving=%t", *v.Moving))
		}
		return strings.Join(parts, " ")
	case *beacon.EstimoteNearable:
		return fmt.Sprintf("id=%s temp=%.2fC moving=%t", v.ID, v.Temperature, v.Moving)
	case *beacon.MinewSensor:
		parts := []string{"product=" + v.Product, fmt.Sprintf("battery=%d%%", v.Battery)}
		if v.Temperature != nil {
			parts = append(parts, fmt.Sprintf("temp=%.2fC", *v.Temperature))
		}
		if v.Humidity != nil {
			parts = append(parts, fmt.Sprintf("humidity=%.2f%%", *v.Humidity))
		}
		if v.Light != nil {
			parts = append(parts, fmt.Sprintf("light=%t", *v.Light))
		}
		if v.Acceleration != nil {
			parts = append(parts, fmt.Sprintf("accel=%.2f,%.2f,%.2f", v.Acceleration.X, v.Acceleration.Y, v.Acceleration.Z))
		}
		if v.Name != "" {
			parts = append(parts, "name="+v.Name)
		}
		return strings.Join(parts, " ")
	}
	return ""
}
