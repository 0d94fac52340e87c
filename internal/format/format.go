// Package format renders values for logs and report output.
package format

import "fmt"

var (
	decimalUnits = []string{"kB", "MB", "GB", "TB", "PB", "EB"}
	binaryUnits  = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
)

// HumanBytes renders a byte count using decimal (kB, base 1000) or
// binary (KiB, base 1024) units with the given number of decimal
// places. Counts below one unit are rendered as plain bytes.
func HumanBytes(size int64, binary bool, precision int) string {
	base := 1000.0
	units := decimalUnits
	if binary {
		base = 1024.0
		units = binaryUnits
	}

	value := float64(size)
	if value < base && value > -base {
		return fmt.Sprintf("%d B", size)
	}

	unit := ""
	for _, u := range units {
		value /= base
		unit = u
		if value < base && value > -base {
			break
		}
	}
	return fmt.Sprintf("%.*f %s", precision, value, unit)
}
