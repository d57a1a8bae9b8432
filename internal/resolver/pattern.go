package resolver

import "regexp"

// Format is the textual encoding detected for an IP string
type Format int

const (
	FormatPlainIP Format = iota
	FormatSetModuleIP
	FormatCloudIP
)

func (f Format) String() string {
	switch f {
	case FormatSetModuleIP:
		return "set_module_ip"
	case FormatCloudIP:
		return "cloud_ip"
	default:
		return "plain_ip"
	}
}

const ipExpr = `((25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(25[0-5]|2[0-4]\d|[01]?\d\d?)`

var (
	ipPattern          = regexp.MustCompile(ipExpr)
	cloudIPPattern     = regexp.MustCompile(`\d+:` + ipExpr)
	setModuleIPPattern = regexp.MustCompile(`[\p{L}\p{N}_]+\|[\p{L}\p{N}_]+\|` + ipExpr)
)

// ExtractIPs returns every dotted-quad IP found in text, in order of appearance
func ExtractIPs(text string) []string {
	return ipPattern.FindAllString(text, -1)
}

// DetectFormat picks the encoding of the whole string. "set|module|ip" wins
// over "cloud:ip", which wins over plain IPs.
func DetectFormat(text string) Format {
	if setModuleIPPattern.MatchString(text) {
		return FormatSetModuleIP
	}
	if cloudIPPattern.MatchString(text) {
		return FormatCloudIP
	}
	return FormatPlainIP
}

func literalSet(pattern *regexp.Regexp, text string) map[string]struct{} {
	matches := pattern.FindAllString(text, -1)
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m] = struct{}{}
	}
	return set
}
