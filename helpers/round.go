package helpers

import (
	"fmt"
	"math"
)

// RoundTo rounds a value to the given number of decimal places.
// Storage precision only; recomputing from the same inputs always rounds
// to the same value.
func RoundTo(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

// FormatJPY formats a yen amount with thousand separators for log output
func FormatJPY(amount float64) string {
	value := int64(math.Round(amount))

	negative := value < 0
	if negative {
		value = -value
	}

	str := fmt.Sprintf("%d", value)
	length := len(str)

	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	if negative {
		return fmt.Sprintf("¥-%s", result)
	}
	return fmt.Sprintf("¥%s", result)
}
