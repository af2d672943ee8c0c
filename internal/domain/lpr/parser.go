package lpr

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var ErrMalformedIdentifier = errors.New("malformed detection identifier")

const (
	minIdentifierTokens = 5
	detectedAtLayout    = "01-02-2006 15:04:05"
)

// ParseIdentifier разбирает имя файла станции вида
// STATION_CAMERA_PLATE_DD-MM-YYYY_HH-MM-SS[_COLOR].EXT
func ParseIdentifier(raw string, loc *time.Location) (*Detection, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/"))
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)

	tokens := strings.Split(name, "_")
	if len(tokens) < minIdentifierTokens {
		return nil, fmt.Errorf("%w: expected at least %d tokens, got %d", ErrMalformedIdentifier, minIdentifierTokens, len(tokens))
	}
	for i, tok := range tokens[:minIdentifierTokens] {
		if tok == "" {
			return nil, fmt.Errorf("%w: token %d is empty", ErrMalformedIdentifier, i+1)
		}
	}

	d := &Detection{
		Station: tokens[0],
		Camera:  tokens[1],
		Plate:   tokens[2],
		Date:    tokens[3],
		Time:    tokens[4],
	}
	if len(tokens) > minIdentifierTokens {
		d.Color = tokens[5]
	}

	detectedAt, err := DetectedAt(d.Date, d.Time, loc)
	if err != nil {
		return nil, err
	}
	d.DetectedAt = detectedAt
	d.VehicleImage = name + ext
	d.PlateImage = PlateImageName(d, ext)

	return d, nil
}

func PlateImageName(d *Detection, ext string) string {
	return strings.Join([]string{d.Station, d.Camera, d.Plate, d.Date, d.Time}, "_") + ext
}

// DetectedAt combines a DD-MM-YYYY date token and a HH-MM-SS time token.
func DetectedAt(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrMalformedIdentifier, date)
	}
	formatted := fmt.Sprintf("%s-%s-%s %s", parts[1], parts[0], parts[2], strings.ReplaceAll(clock, "-", ":"))

	t, err := time.ParseInLocation(detectedAtLayout, formatted, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date or time %q %q", ErrMalformedIdentifier, date, clock)
	}
	return t, nil
}
