package domain

import (
	"regexp"
	"strings"
)

// ShopSuffix is the host suffix every Shopify store domain carries.
const ShopSuffix = ".myshopify.com"

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShopDomain converts user input ("Foo", "https://foo.myshopify.com/")
// into the canonical <name>.myshopify.com form. It is idempotent.
func NormalizeShopDomain(shop string) string {
	shop = strings.TrimSpace(shop)
	if i := strings.Index(shop, "://"); i >= 0 {
		shop = shop[i+3:]
	}
	shop = strings.TrimRight(shop, "/")
	shop = strings.ToLower(shop)
	if shop == "" {
		return ""
	}
	if !strings.HasSuffix(shop, ShopSuffix) {
		shop += ShopSuffix
	}
	return shop
}

// ValidShopDomain reports whether shop is a bare <name>.myshopify.com host.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// ParseShopDomain normalizes shop and rejects anything that would not resolve
// to a Shopify store host (paths, ports, userinfo, fragments, other domains).
func ParseShopDomain(shop string) (string, error) {
	normalized := NormalizeShopDomain(shop)
	if normalized == "" {
		return "", NewValidationError("Missing shop parameter")
	}
	if !ValidShopDomain(normalized) {
		return "", NewValidationError("Invalid shop domain")
	}
	return normalized, nil
}
