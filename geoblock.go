package registry

// GeoBlock is one fixed-width record of the GeoIP database: a contiguous
// IPv4 range plus the location it maps to. Blocks are stored back to back
// in ip_to order, so a lookup is a binary search over the file by block
// index rather than by byte offset.
type GeoBlock struct {
	IPFrom    string
	IPTo      string
	Continent string
	Country   string
	Region    string
	City      string
	Latitude  float64
	Longitude float64
}

// geoBlockSize is the on-disk size of a packed GeoBlock: 4+4 (IPs) + 2+2
// (continent, country) + 40 (region) + 80 (city) + 8+8 (lat, lon).
const geoBlockSize = 148

// packGeoBlock serializes b into geoBlockSize bytes, grounded on
// original_source's geoip.py _pack_block field layout and widths.
func packGeoBlock(b GeoBlock) ([]byte, error) {
	out := make([]byte, 0, geoBlockSize)

	ipFrom, err := ipToBytes(b.IPFrom)
	if err != nil {
		return nil, err
	}
	ipTo, err := ipToBytes(b.IPTo)
	if err != nil {
		return nil, err
	}
	continent, err := strToBytes(b.Continent, 2)
	if err != nil {
		return nil, err
	}
	country, err := strToBytes(b.Country, 2)
	if err != nil {
		return nil, err
	}
	region, err := strToBytes(b.Region, 40)
	if err != nil {
		return nil, err
	}
	city, err := strToBytes(b.City, 80)
	if err != nil {
		return nil, err
	}
	lat := floatToBytes(b.Latitude)
	lon := floatToBytes(b.Longitude)

	out = append(out, ipFrom[:]...)
	out = append(out, ipTo[:]...)
	out = append(out, continent...)
	out = append(out, country...)
	out = append(out, region...)
	out = append(out, city...)
	out = append(out, lat[:]...)
	out = append(out, lon[:]...)
	return out, nil
}

// unpackGeoBlock is the inverse of packGeoBlock. raw must be exactly
// geoBlockSize bytes.
func unpackGeoBlock(raw []byte) GeoBlock {
	return GeoBlock{
		IPFrom:    ipFromBytes([4]byte(raw[0:4])),
		IPTo:      ipFromBytes([4]byte(raw[4:8])),
		Continent: strFromBytes(raw[8:10]),
		Country:   strFromBytes(raw[10:12]),
		Region:    strFromBytes(raw[12:52]),
		City:      strFromBytes(raw[52:132]),
		Latitude:  floatFromBytes(raw[132:140]),
		Longitude: floatFromBytes(raw[140:148]),
	}
}

// geoBlockIPTo reads just the ip_to field of a packed block, used by the
// store's binary search without unpacking the whole record.
func geoBlockIPTo(raw []byte) uint32 {
	return bytesToInt([4]byte(raw[4:8]))
}
