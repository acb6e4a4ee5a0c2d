package locale

import (
	"fmt"
	"strings"
	"time"
)

// ResolveLocation turns the configured zone into a *time.Location. It accepts
// "" or "Local" for the host zone, an IANA name, or a country code from
// Countries.
func ResolveLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, LocalTimezone) {
		return time.Local, nil
	}

	if country, ok := Countries[strings.ToUpper(name)]; ok && len(name) == 2 {
		name = country.DefaultTimezone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

// CountryForZone returns the country whose default zone is tz, if any.
func CountryForZone(tz string) *Country {
	for _, country := range Countries {
		if strings.EqualFold(country.DefaultTimezone, tz) {
			c := country
			return &c
		}
	}
	return nil
}
