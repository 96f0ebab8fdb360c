// Package rirstat provides a parser for the RIR statistics exchange format
// (the "delegated" files published by the regional internet registries).
package rirstat

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const timeFmt = "20060102"

// Some registries publish lines well past bufio's default limit in the
// extended files.
const maxLineSize = 1 << 20

// ErrBadHeader is returned by ParseHeader for a version line that cannot be
// read.
var ErrBadHeader = errors.New("rirstat: bad header")

// Header is the version line of a delegation file.
type Header struct {
	Version   string
	Registry  string
	Serial    int64
	Records   int
	StartDate time.Time
	EndDate   time.Time
	UTCOffset int
}

// File is the parsed content of one delegation file.
type File struct {
	// Header is nil when the first line is not a readable version line.
	Header  *Header
	Records []Record
	// Skipped counts lines that carry no address delegation: asn records,
	// short lines.
	Skipped int
	// Rejected counts address lines that could not be parsed.
	Rejected int
}

// Parse reads a delegation file. Comment lines, the version line and the
// summary lines are skipped. A line that fails to parse is logged and
// counted in the result; only a read error stops the parse.
func Parse(r io.Reader) (*File, error) {
	var f File
	header := true

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineno := 0
	for s.Scan() {
		lineno++
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if header {
			header = false
			h, err := ParseHeader(line)
			if err != nil {
				log.WithField("line", lineno).WithError(err).Debug("rirstat: unreadable version line")
			}
			f.Header = h
			continue
		}

		if strings.HasSuffix(line, "summary") {
			continue
		}

		rec, err := ParseLine(line)
		switch {
		case err == nil:
			f.Records = append(f.Records, rec)
		case errors.Is(err, ErrNotRecord):
			f.Skipped++
			log.WithField("line", lineno).Trace("rirstat: skipping non-address line")
		default:
			f.Rejected++
			log.WithFields(log.Fields{
				"line":  lineno,
				"input": line,
			}).WithError(err).Debug("rirstat: rejecting line")
		}
	}

	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "rirstat: read")
	}
	return &f, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" || s == "00000000" {
		return time.Time{}, nil
	}
	return time.Parse(timeFmt, s)
}

// ParseHeader parses the version line:
//
//	version|registry|serial|records|startdate|enddate|UTCoffset
func ParseHeader(line string) (*Header, error) {
	cols := strings.Split(strings.TrimSpace(line), "|")
	if len(cols) < 7 {
		return nil, errors.Wrapf(ErrBadHeader, "%d fields", len(cols))
	}

	var hdr Header
	var err error

	if _, err = strconv.ParseFloat(cols[0], 64); err != nil {
		return nil, errors.Wrapf(ErrBadHeader, "version %q", cols[0])
	}
	hdr.Version = cols[0]
	hdr.Registry = cols[1]
	if hdr.Serial, err = strconv.ParseInt(cols[2], 10, 64); err != nil {
		return nil, errors.Wrapf(ErrBadHeader, "serial %q", cols[2])
	}
	if hdr.Records, err = strconv.Atoi(cols[3]); err != nil {
		return nil, errors.Wrapf(ErrBadHeader, "records %q", cols[3])
	}
	if hdr.StartDate, err = parseTime(cols[4]); err != nil {
		return nil, errors.Wrapf(ErrBadHeader, "start date %q", cols[4])
	}
	if hdr.EndDate, err = parseTime(cols[5]); err != nil {
		return nil, errors.Wrapf(ErrBadHeader, "end date %q", cols[5])
	}
	if hdr.UTCOffset, err = strconv.Atoi(strings.TrimPrefix(cols[6], "+")); err != nil {
		return nil, errors.Wrapf(ErrBadHeader, "utc offset %q", cols[6])
	}

	return &hdr, nil
}
