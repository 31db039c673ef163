// Package netinfo deriva el contexto de red de un request: IP del cliente,
// geolocalizacion gruesa y firma del dispositivo.
package netinfo

import (
	"net"
	"net/http"
	"strings"

	"github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"

	"star-auth/internal/domain"
)

// Extractor resuelve NetworkContext a partir de un request. La busqueda
// geo es best-effort contra un dataset MMDB local; sin dataset o sin
// datos los campos quedan vacios, nunca hay error.
type Extractor struct {
	geo *geoip2.Reader
}

// NewExtractor abre el dataset geo si se configuro una ruta. Con ruta
// vacia el extractor funciona sin geolocalizacion.
func NewExtractor(geoDBPath string) (*Extractor, error) {
	if strings.TrimSpace(geoDBPath) == "" {
		return &Extractor{}, nil
	}
	reader, err := geoip2.Open(geoDBPath)
	if err != nil {
		return nil, err
	}
	return &Extractor{geo: reader}, nil
}

// Close libera el dataset geo.
func (e *Extractor) Close() error {
	if e.geo == nil {
		return nil
	}
	return e.geo.Close()
}

// FromRequest extrae el contexto de red. Siempre devuelve un resultado.
func (e *Extractor) FromRequest(r *http.Request) domain.NetworkContext {
	info := domain.NetworkContext{
		IPAddress:  clientIP(r),
		DeviceInfo: deviceInfo(r.UserAgent()),
	}

	if e.geo == nil || info.IPAddress == "" {
		return info
	}
	ip := net.ParseIP(info.IPAddress)
	if ip == nil {
		return info
	}
	record, err := e.geo.City(ip)
	if err != nil {
		return info
	}

	info.Country = record.Country.IsoCode
	if len(record.Subdivisions) > 0 {
		info.Region = record.Subdivisions[0].IsoCode
	}
	info.City = record.City.Names["en"]
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		lat := record.Location.Latitude
		long := record.Location.Longitude
		info.Lat = &lat
		info.Long = &long
	}
	return info
}

// clientIP toma el primer salto de X-Forwarded-For, o la direccion del
// peer directo.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceInfo(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return ""
	}
	ua := useragent.Parse(rawUA)
	parts := make([]string, 0, 3)
	if ua.Name != "" {
		if ua.Version != "" {
			parts = append(parts, ua.Name+" "+ua.Version)
		} else {
			parts = append(parts, ua.Name)
		}
	}
	if ua.OS != "" {
		if ua.OSVersion != "" {
			parts = append(parts, ua.OS+" "+ua.OSVersion)
		} else {
			parts = append(parts, ua.OS)
		}
	}
	if ua.Device != "" {
		parts = append(parts, ua.Device)
	}
	if len(parts) == 0 {
		return rawUA
	}
	return strings.Join(parts, " / ")
}
