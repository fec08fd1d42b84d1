package registry

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
)

var ipv4Pattern = regexp.MustCompile(`^\d{0,3}\.\d{0,3}\.\d{0,3}\.\d{0,3}$`)

// PrepareGeoDB streams an 8-column CSV (ip_from, ip_to, continent, country,
// region, city, latitude, longitude) into a fixed-width GeoBlock file at
// dbPath, trusting the CSV's ip_to ordering, grounded on
// NetworkCats-Merged-IP-Data's reader/openproxydb.go streaming pattern
// (bufio + encoding/csv, one buffered writer pass) and on original_source's
// prepare_geoip_db. Non-IPv4 rows are skipped, matching the source's
// IP_V4_PATTERN filter.
func PrepareGeoDB(csvPath, dbPath string) error {
	in, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening geo source csv: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dbPath)
	if err != nil {
		return fmt.Errorf("creating geoip database: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	r := csv.NewReader(bufio.NewReader(in))
	r.ReuseRecord = true
	r.FieldsPerRecord = 8

	var prevIPTo uint32
	var blockCount, outOfOrderAt int
	haveOutOfOrder := false

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading geo source csv: %w", err)
		}
		if !ipv4Pattern.MatchString(record[0]) {
			continue
		}

		lat, err := strconv.ParseFloat(record[6], 64)
		if err != nil {
			return fmt.Errorf("parsing latitude %q: %w", record[6], err)
		}
		lon, err := strconv.ParseFloat(record[7], 64)
		if err != nil {
			return fmt.Errorf("parsing longitude %q: %w", record[7], err)
		}

		block := GeoBlock{
			IPFrom:    record[0],
			IPTo:      record[1],
			Continent: record[2],
			Country:   record[3],
			Region:    record[4],
			City:      record[5],
			Latitude:  lat,
			Longitude: lon,
		}
		packed, err := packGeoBlock(block)
		if err != nil {
			return fmt.Errorf("packing geo block for %s-%s: %w", block.IPFrom, block.IPTo, err)
		}
		if _, err := w.Write(packed); err != nil {
			return fmt.Errorf("writing geo block: %w", err)
		}

		ipToInt, err := ipToInt(block.IPTo)
		if err == nil {
			if blockCount > 0 && ipToInt < prevIPTo && !haveOutOfOrder {
				haveOutOfOrder = true
				outOfOrderAt = blockCount
			}
			prevIPTo = ipToInt
		}
		blockCount++
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing geoip database: %w", err)
	}
	if haveOutOfOrder {
		Log.Warn("geoip source csv is not sorted by ip_to; lookups past this point may be unreliable",
			"block_index", outOfOrderAt)
	}
	return nil
}
