package orchestrator

import (
	"fmt"
	"math"
)

// HumanTime renders seconds as h:mm:ss.ss, or m:ss.ss under an hour.
func HumanTime(sec float64) string {
	sec = math.Round(math.Max(0, sec)*100) / 100
	m, s := math.Floor(sec/60), math.Mod(sec, 60)
	h := int(m) / 60
	mm := int(m) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%05.2f", h, mm, s)
	}
	return fmt.Sprintf("%d:%05.2f", mm, s)
}
