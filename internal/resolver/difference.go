package resolver

// DifferenceIPs returns the IPs written in original that are missing from
// resolved. The result is sorted and free of duplicates.
func DifferenceIPs(original string, resolved []string) []string {
	return difference(ExtractIPs(original), resolved)
}
