package geo

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/oschwald/geoip2-golang"
)

// Locator resolves an IP address to a coarse location, or nil when the
// address is unknown. Lookups are pure and never fail the caller.
type Locator interface {
	Lookup(ip string) *models.Location
}

// MaxMindLocator reads a GeoLite2/GeoIP2 City database from disk
type MaxMindLocator struct {
	reader *geoip2.Reader
	logger *slog.Logger
}

func NewMaxMindLocator(mmdbPath string, logger *slog.Logger) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(mmdbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &MaxMindLocator{reader: reader, logger: logger}, nil
}

func (l *MaxMindLocator) Close() error {
	return l.reader.Close()
}

// Lookup resolves the IP, returning nil for private, malformed or unmapped
// addresses
func (l *MaxMindLocator) Lookup(ip string) *models.Location {
	cleanIP := strings.TrimPrefix(ip, "::ffff:")

	parsed := net.ParseIP(cleanIP)
	if parsed == nil {
		return nil
	}

	record, err := l.reader.City(parsed)
	if err != nil {
		l.logger.Debug("geoip lookup failed", slog.String("ip", cleanIP), slog.Any("error", err))
		return nil
	}
	if record == nil || record.Country.IsoCode == "" {
		return nil
	}

	loc := &models.Location{
		IP:      cleanIP,
		City:    record.City.Names["en"],
		Country: record.Country.IsoCode,
	}
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		loc.Coordinates = &models.Coordinates{
			Latitude:  record.Location.Latitude,
			Longitude: record.Location.Longitude,
		}
	}

	return loc
}

// NopLocator is used when no geo database is configured
type NopLocator struct{}

func (NopLocator) Lookup(string) *models.Location { return nil }
