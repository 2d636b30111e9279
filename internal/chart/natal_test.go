package chart

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shigemiyagi/marriage-astrology-app/internal/astro"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris"
	"github.com/shigemiyagi/marriage-astrology-app/internal/ephemeris/ephemeristest"
)

func tokyoInput(t *testing.T) BirthInput {
	t.Helper()
	jst := time.FixedZone("JST", 9*3600)
	return BirthInput{
		Date:      civil.Date{Year: 1990, Month: time.January, Day: 1},
		Clock:     Clock{Hour: 13, Minute: 0, Known: true},
		Location:  jst,
		Latitude:  35.69,
		Longitude: 139.69,
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"16:27", Clock{16, 27, true}, false},
		{"7:05", Clock{7, 5, true}, false},
		{"", Clock{12, 0, false}, false},
		{"unknown", Clock{12, 0, false}, false},
		{"Unknown", Clock{12, 0, false}, false},
		{"24:00", Clock{}, true},
		{"12:60", Clock{}, true},
		{"12:5", Clock{}, true},
		{"noon", Clock{}, true},
		{"ab:cd", Clock{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in, Noon)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBirthInputValidate(t *testing.T) {
	in := tokyoInput(t)
	require.NoError(t, in.Validate())

	bad := in
	bad.Latitude = 91
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidInput))

	bad = in
	bad.Location = nil
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidInput))

	bad = in
	bad.Date = civil.Date{Year: 1990, Month: time.February, Day: 30}
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidInput))

	bad = in
	bad.Date.Year = 1700
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidInput))
}

func TestNewBirthInput(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	in, err := NewBirthInput("1990-01-01", "unknown", jst, 35.69, 139.69, Noon)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 1990, Month: time.January, Day: 1}, in.Date)
	assert.Equal(t, Clock{Hour: 12, Minute: 0, Known: false}, in.Clock)
	assert.Equal(t, 3, in.Instant().UTC().Hour())

	_, err = NewBirthInput("1990/01/01", "13:00", jst, 35.69, 139.69, Noon)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = NewBirthInput("1990-01-01", "25:00", jst, 35.69, 139.69, Noon)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = NewBirthInput("1990-01-01", "13:00", jst, 95, 139.69, Noon)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestBuildWithAnalyticEphemeris(t *testing.T) {
	b := NewBuilder(ephemeris.NewAnalytic(), ephemeris.Placidus)
	n, err := b.Build(context.Background(), tokyoInput(t))
	require.NoError(t, err)

	assert.InDelta(t, 2447892.6666667, n.JulianDay, 1e-6, "13:00 JST is 04:00 UT")
	assert.InDelta(t, 44.81, n.Position(astro.Ascendant), 0.05)
	assert.InDelta(t, astro.Opposite(n.Position(astro.Ascendant)), n.Position(astro.Descendant), 1e-9)
	assert.InDelta(t, astro.Opposite(n.Position(astro.Midheaven)), n.Position(astro.ImumCoeli), 1e-9)
	assert.InDelta(t, n.Position(astro.Descendant), n.SeventhCusp(), 1e-9)

	// Descendant at ~224.8 is Scorpio, ruled by Mars.
	assert.Equal(t, astro.Scorpio, n.DescendantSign)
	assert.Equal(t, astro.Mars, n.RulerBody)
	ruler, err := n.RulerLongitude()
	require.NoError(t, err)
	assert.Equal(t, n.Position(astro.Mars), ruler)

	for i := 0; i < astro.BodyCount; i++ {
		assert.GreaterOrEqual(t, n.Positions[i], 0.0)
		assert.Less(t, n.Positions[i], 360.0)
	}
}

func TestBuildSurfacesUndefinedHouses(t *testing.T) {
	in := tokyoInput(t)
	in.Latitude = 75
	_, err := NewBuilder(ephemeris.NewAnalytic(), ephemeris.Placidus).Build(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChartUnavailable))
	assert.True(t, errors.Is(err, ephemeris.ErrHousesUndefined))
}

func TestBuildRejectsInvalidInputBeforeLookups(t *testing.T) {
	eph := ephemeristest.New(0, 270)
	in := tokyoInput(t)
	in.Longitude = 200
	_, err := NewBuilder(eph, ephemeris.Placidus).Build(context.Background(), in)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Zero(t, eph.Calls())
}

func TestBuildResolvesRulerFromScriptedChart(t *testing.T) {
	// Asc Aries 10, Dsc Libra 10
	eph := ephemeristest.New(10, 280).Set(astro.Venus, ephemeristest.Fixed(123.4))
	n, err := NewBuilder(eph, ephemeris.Placidus).Build(context.Background(), tokyoInput(t))
	require.NoError(t, err)
	assert.Equal(t, astro.Libra, n.DescendantSign)
	assert.Equal(t, astro.Venus, n.RulerBody)
	assert.Equal(t, Some(123.4), n.Ruler)
}

func TestRulerAbsentWhenTableNamesAnAngle(t *testing.T) {
	rulers := astro.TraditionalRulers
	rulers[astro.Libra] = astro.Midheaven
	eph := ephemeristest.New(10, 280)
	n, err := NewBuilder(eph, ephemeris.Placidus).WithRulers(rulers).Build(context.Background(), tokyoInput(t))
	require.NoError(t, err)

	assert.False(t, n.Ruler.Valid)
	_, err = n.RulerLongitude()
	assert.True(t, errors.Is(err, ErrMissingReference))
}

func TestComposite(t *testing.T) {
	a := &Natal{JulianDay: 2447892.5, Instant: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), Latitude: 30, Longitude: 170}
	b := &Natal{JulianDay: 2449000.5, Latitude: 40, Longitude: -170}
	a.Positions[astro.Venus], b.Positions[astro.Venus] = 350, 10
	a.Positions[astro.Ascendant], b.Positions[astro.Ascendant] = 100, 120
	a.Positions[astro.Midheaven], b.Positions[astro.Midheaven] = 10, 30
	a.Ruler, b.Ruler = Some(5), Some(6)
	for i := range a.Cusps {
		a.Cusps[i] = astro.Normalize(100 + float64(i)*30)
		b.Cusps[i] = astro.Normalize(120 + float64(i)*30)
	}

	c := Composite(a, b)
	assert.True(t, c.Composite)
	assert.Equal(t, a.JulianDay, c.JulianDay)
	assert.Equal(t, a.Instant, c.Instant)
	assert.InDelta(t, 0.0, c.Position(astro.Venus), 1e-9)
	assert.InDelta(t, 110.0, c.Position(astro.Ascendant), 1e-9)
	assert.InDelta(t, 290.0, c.Position(astro.Descendant), 1e-9)
	assert.InDelta(t, 200.0, c.Position(astro.ImumCoeli), 1e-9)
	assert.InDelta(t, 290.0, c.SeventhCusp(), 1e-9)
	assert.InDelta(t, 180.0, c.Longitude, 1e-9)
	assert.InDelta(t, 35.0, c.Latitude, 1e-9)

	assert.False(t, c.Ruler.Valid)
	_, err := c.RulerLongitude()
	assert.True(t, errors.Is(err, ErrMissingReference))
}

func TestFingerprint(t *testing.T) {
	eph := ephemeristest.New(10, 280).Set(astro.Sun, ephemeristest.Fixed(280))
	b := NewBuilder(eph, ephemeris.Placidus)
	n1, err := b.Build(context.Background(), tokyoInput(t))
	require.NoError(t, err)
	n2, err := b.Build(context.Background(), tokyoInput(t))
	require.NoError(t, err)
	assert.Equal(t, n1.Fingerprint(), n2.Fingerprint())

	in := tokyoInput(t)
	in.Clock.Minute = 1
	n3, err := b.Build(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, n1.Fingerprint(), n3.Fingerprint())

	assert.NotEqual(t, n1.Fingerprint(), Composite(n1, n1).Fingerprint())
}
