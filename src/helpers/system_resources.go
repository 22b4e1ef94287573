package helpers

const minMemoryLimitMB = 512

// RecommendedMemoryLimitMB returns the soft memory limit the process should
// run under: 75% of physical RAM, never below 512MB unless the machine has
// less than that. ok is false when RAM could not be determined.
func RecommendedMemoryLimitMB() (limit int, ok bool) {
	return memoryLimitFor(GetTotalSystemMemoryMB())
}

func memoryLimitFor(totalMB int) (int, bool) {
	if totalMB <= 0 {
		return minMemoryLimitMB, false
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < minMemoryLimitMB {
		if totalMB < minMemoryLimitMB {
			return totalMB, true
		}
		return minMemoryLimitMB, true
	}
	return limit, true
}
