package imagesweep

import (
	"net/url"
	"strings"
)

// License classifies a downloaded image by reuse safety.
type License int

const (
	LicenseUnknown License = iota // no signal either way
	LicenseOpen                   // Creative Commons metadata or a free image host
	LicenseStock                  // stock agency host, URL or metadata
)

func (l License) String() string {
	switch l {
	case LicenseOpen:
		return "open"
	case LicenseStock:
		return "stock"
	default:
		return "unknown"
	}
}

// StockDomains are stock photo sites that enforce copyright and send invoices.
var StockDomains = []string{
	"shutterstock",
	"gettyimages",
	"istockphoto",
	"adobestock",
	"depositphotos",
	"dreamstime",
	"123rf",
	"alamy",
	"bigstockphoto",
	"stocksy",
	"eyeem",
	"pond5",
	"thinkstockphotos",
	"canstockphoto",
	"masterfile",
	"superstock",
	"agefotostock",
	"colourbox",
	"photodune",
	"yayimages",
	"vectorstock",
	"loriimages",
	"fotobank",
	"freepik",
	"canva.", // trailing dot keeps "canvas" out
	"clipartof",
	"featurepics",
	"rfclipart",
}

// OpenDomains are free or attribution-friendly image hosts.
var OpenDomains = []string{
	"unsplash",
	"pexels",
	"pixabay",
	"wikimedia",
	"flickr",
	"rawpixel",
	"stocksnap",
	"burst.shopify",
	"kaboompics",
	"picjumbo",
}

var stockURLPatterns = []string{
	"/stock-photo",
	"/stock-image",
	"/editorial-image",
	"/premium-photo",
}

var stockMetadataKeywords = []string{
	"shutterstock",
	"gettyimages",
	"getty images",
	"istockphoto",
	"istock",
	"alamy",
	"depositphotos",
	"dreamstime",
	"123rf",
	"adobestock",
	"adobe stock",
	"bigstockphoto",
	"stocksy",
	"pond5",
	"masterfile",
	"superstock",
	"agefotostock",
	"age fotostock",
	"colourbox",
	"yayimages",
	"vectorstock",
	"freepik",
}

var ccLicensePathSegments = []string{
	"creativecommons.org/licenses/",
	"creativecommons.org/publicdomain/",
}

// IsCCLicenseURL reports whether s contains a Creative Commons license or
// public-domain dedication path. Case-insensitive.
func IsCCLicenseURL(s string) bool {
	lower := strings.ToLower(s)
	for _, seg := range ccLicensePathSegments {
		if strings.Contains(lower, seg) {
			return true
		}
	}
	return false
}

// AssessLicense combines the image URL and its rights metadata into one
// verdict. Stock signals win over open ones.
func AssessLicense(rawURL string, r *Rights) License {
	host, path := splitURL(rawURL)
	if isStockURL(host, path) || isStockRights(r) {
		return LicenseStock
	}
	if isCCRights(r) || containsAny(host, OpenDomains) {
		return LicenseOpen
	}
	return LicenseUnknown
}

func splitURL(rawURL string) (host, path string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	return strings.ToLower(u.Hostname()), strings.ToLower(u.Path)
}

func isStockURL(host, path string) bool {
	if host != "" && containsAny(host, StockDomains) {
		return true
	}
	return containsAny(path, stockURLPatterns)
}

func isStockRights(r *Rights) bool {
	if r == nil {
		return false
	}
	for _, f := range []string{r.Copyright, r.Artist, r.Credit, r.Source} {
		if f != "" && containsAny(strings.ToLower(f), stockMetadataKeywords) {
			return true
		}
	}
	return false
}

func isCCRights(r *Rights) bool {
	if r == nil {
		return false
	}
	return IsCCLicenseURL(r.License) || IsCCLicenseURL(r.Terms) || IsCCLicenseURL(r.Copyright)
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
