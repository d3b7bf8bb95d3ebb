package imagesweep

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
)

// CheckURL applies the URL policy without touching the network: allowed
// scheme, a host, not a forbidden domain (exact or subdomain), and no
// loopback, private, link-local or unspecified IP literal.
func (cfg *Config) CheckURL(rawURL string) (*url.URL, error) {
	cfg.defaults()
	return cfg.checkURL(rawURL)
}

func (cfg *Config) checkURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %w", ErrValidation, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(cfg.AllowedSchemes, scheme) {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrValidation, parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: url has no host", ErrValidation)
	}
	if isForbiddenHost(host, cfg.ForbiddenDomains) {
		return nil, fmt.Errorf("%w: host %s is forbidden", ErrValidation, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && !publicAddr(addr) {
		return nil, fmt.Errorf("%w: address %s is not public", ErrValidation, host)
	}
	return parsed, nil
}

func isForbiddenHost(host string, forbidden []string) bool {
	for _, d := range forbidden {
		d = strings.ToLower(strings.TrimPrefix(d, "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func publicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified())
}

// mediaType strips MIME parameters: "image/jpeg; charset=utf-8" → "image/jpeg".
func mediaType(ct string) string {
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// checkDeclaredLength rejects responses that announce a body above MaxBytes.
func (cfg *Config) checkDeclaredLength(resp *http.Response) error {
	if resp.ContentLength > cfg.MaxBytes {
		return fmt.Errorf("%w: content-length %d exceeds %d", ErrValidation, resp.ContentLength, cfg.MaxBytes)
	}
	return nil
}

// checkBody validates a fully read body against the size bounds and the
// MIME allow-list. A declared type outside the list can still pass when
// sniffing the body yields an allowed type. Returns the accepted type.
func (cfg *Config) checkBody(declared string, body []byte) (string, error) {
	size := int64(len(body))
	if size < cfg.MinBytes {
		return "", fmt.Errorf("%w: body %d bytes below minimum %d", ErrValidation, size, cfg.MinBytes)
	}
	if size > cfg.MaxBytes {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrValidation, cfg.MaxBytes)
	}

	mt := mediaType(declared)
	if slices.Contains(cfg.AllowedMIMETypes, mt) {
		return mt, nil
	}
	sniffed := mediaType(http.DetectContentType(body))
	if slices.Contains(cfg.AllowedMIMETypes, sniffed) {
		cfg.Logger.Debug("imagesweep: content type rescued by sniffing", "declared", declared, "sniffed", sniffed)
		return sniffed, nil
	}
	return "", fmt.Errorf("%w: content type %q not allowed", ErrValidation, declared)
}
