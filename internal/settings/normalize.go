package settings

import (
	"fmt"
	"strings"
)

func (s *Settings) normalize() error {
	s.Download.UserAgents = trimList(s.Download.UserAgents, false)
	s.Validation.AllowedMIMETypes = trimList(s.Validation.AllowedMIMETypes, true)
	s.Validation.AllowedSchemes = trimList(s.Validation.AllowedSchemes, true)
	s.Validation.ForbiddenDomains = trimList(s.Validation.ForbiddenDomains, true)

	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))
	if s.Logging.Format == "" {
		s.Logging.Format = "console"
	}

	var err error
	if s.Logging.File, err = expandPath(strings.TrimSpace(s.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if strings.TrimSpace(s.Cache.Path) == "" {
		s.Cache.Path = defaultCachePath()
	}
	if s.Cache.Path, err = expandPath(strings.TrimSpace(s.Cache.Path)); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func trimList(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
