package egress

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoASNDatabase is returned by ASN lookups when the checker was opened
// without an ASN database.
var ErrNoASNDatabase = errors.New("asn database not loaded")

// ExitInfo holds the geographic data resolved for an egress IP.
type ExitInfo struct {
	CountryCode string  `json:"country_code"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Checker resolves where a public IP egresses from, backed by local MaxMind
// databases. The VPN manager uses it to confirm that tunnel traffic really
// exits in the connected server's country; a mismatch is treated as a leak.
type Checker struct {
	cityReader *geoip2.Reader
	asnReader  *geoip2.Reader
}

// NewChecker opens the GeoLite2/GeoIP2 City database at cityDBPath and,
// when asnDBPath is non-empty, the ASN database next to it. Country and
// city lookups work without an ASN database; ASN lookups then return
// ErrNoASNDatabase.
func NewChecker(cityDBPath, asnDBPath string) (*Checker, error) {
	cityReader, err := geoip2.Open(cityDBPath)
	if err != nil {
		return nil, fmt.Errorf("open city database: %w", err)
	}

	var asnReader *geoip2.Reader
	if asnDBPath != "" {
		asnReader, err = geoip2.Open(asnDBPath)
		if err != nil {
			cityReader.Close()
			return nil, fmt.Errorf("open asn database: %w", err)
		}
	}

	return &Checker{
		cityReader: cityReader,
		asnReader:  asnReader,
	}, nil
}

// Close releases the underlying database handles.
func (c *Checker) Close() {
	if c.cityReader != nil {
		c.cityReader.Close()
	}
	if c.asnReader != nil {
		c.asnReader.Close()
	}
}

// LookupExit resolves country, city and coordinates for the given IP.
func (c *Checker) LookupExit(ipAddress string) (*ExitInfo, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address: %s", ipAddress)
	}

	record, err := c.cityReader.City(ip)
	if err != nil {
		return nil, err
	}

	return &ExitInfo{
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
	}, nil
}

// ExitCountry resolves just the ISO country code for the given IP.
func (c *Checker) ExitCountry(ipAddress string) (string, error) {
	info, err := c.LookupExit(ipAddress)
	if err != nil {
		return "", err
	}
	return info.CountryCode, nil
}

// ExitASN resolves the autonomous system number and organization owning
// the given IP. Useful for telling residential exits from hosting ranges.
func (c *Checker) ExitASN(ipAddress string) (uint, string, error) {
	if c.asnReader == nil {
		return 0, "", ErrNoASNDatabase
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return 0, "", fmt.Errorf("invalid ip address: %s", ipAddress)
	}

	record, err := c.asnReader.ASN(ip)
	if err != nil {
		return 0, "", err
	}

	return uint(record.AutonomousSystemNumber), record.AutonomousSystemOrganization, nil
}
