package grbl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/machine"
)

var errMalformedStatus = errors.New("malformed status report")

func parseCoords(data string) (p coord.Point, err error) {
	parts := strings.Split(data, ",")
	if len(parts) < 3 {
		return p, errors.New("invalid number of elements")
	}
	p.X, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return p, err
	}
	p.Y, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return p, err
	}
	p.Z, err = strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return p, err
	}
	return p, nil
}

// parseProbe reads a "[PRB:x,y,z:1]" message. The point is in machine
// coordinates.
func parseProbe(data string) (*machine.ProbeResult, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "[")
	data = strings.TrimSuffix(data, "]")
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "PRB" {
		return nil, errors.New("unknown PUSH message: " + data)
	}

	var res machine.ProbeResult
	var err error
	res.Valid = parts[2] == "1"
	res.Point, err = parseCoords(parts[1])
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// parseStatus applies a "<Status|WPos:...|MPos:...|WCO:...>" report to
// stat. Fields missing from the report keep their previous value; when only
// MPos is reported the work position is derived from the last known WCO.
func parseStatus(stat machine.State, data string) (*machine.State, error) {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, "<") || !strings.HasSuffix(data, ">") {
		return nil, errMalformedStatus
	}
	data = strings.TrimPrefix(data, "<")
	data = strings.TrimSuffix(data, ">")
	parts := strings.Split(data, "|")
	if parts[0] == "" {
		return nil, errMalformedStatus
	}
	stat.Status = parts[0]

	var hasWPos, hasMPos bool
	var err error
	for _, s := range parts[1:] {
		sParts := strings.SplitN(s, ":", 2)
		if len(sParts) != 2 {
			continue
		}
		switch sParts[0] {
		case "MPos":
			stat.MPos, err = parseCoords(sParts[1])
			hasMPos = true
		case "WPos":
			stat.WPos, err = parseCoords(sParts[1])
			hasWPos = true
		case "WCO":
			stat.WCO, err = parseCoords(sParts[1])
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errMalformedStatus, sParts[0], err)
		}
	}

	switch {
	case hasMPos && !hasWPos:
		stat.WPos = stat.MPos.Sub(stat.WCO)
	case hasWPos && !hasMPos:
		stat.MPos = stat.WPos.Add(stat.WCO)
	}

	return &stat, nil
}
