package helper

import (
	"math"
	"strings"
)

// NormTF приводит таймфрейм к канонической форме: "60m" и "1H" — это "1h".
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "15m":
		return "15m"
	case "10m":
		return "10m"
	case "5m":
		return "5m"
	case "1m":
		return "1m"
	default:
		return s
	}
}

// RoundDownToTick прижимает цену вниз к шагу тика биржи (лимитка на
// покупку не должна переплачивать из-за дробного хвоста).
func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

// RoundUpToTick — то же вверх, для закрывающей стороны.
func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}
