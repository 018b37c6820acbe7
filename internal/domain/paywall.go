package domain

import "strings"

// PaywallBypassPrefix routes a URL through the 12ft.io reader.
const PaywallBypassPrefix = "https://12ft.io/"

// WithPaywallBypass prefixes rawURL with the bypass service, at most once.
func WithPaywallBypass(rawURL string) string {
	if rawURL == "" || strings.Contains(rawURL, "12ft.io") {
		return rawURL
	}
	return PaywallBypassPrefix + rawURL
}

// WithoutPaywallBypass strips the bypass prefix if present.
func WithoutPaywallBypass(rawURL string) string {
	return strings.TrimPrefix(rawURL, PaywallBypassPrefix)
}
